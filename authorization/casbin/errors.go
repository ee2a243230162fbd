package casbin

import "fmt"

type UnknownPolicyTypeError struct {
	PolicyType string
}

func (err UnknownPolicyTypeError) Error() string {
	return fmt.Sprintf("unknown policy type %q", err.PolicyType)
}

type MalformedPolicyError struct {
	Record []string
}

func (err MalformedPolicyError) Error() string {
	return fmt.Sprintf("malformed policy record %v", err.Record)
}
