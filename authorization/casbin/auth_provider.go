package casbin

import (
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/nasermirzaei89/forumgw/authorization"
)

// ObjectNone stands in for requests that name no particular object.
const ObjectNone = "-"

//go:embed model.conf
var casbinModelContent string

type AuthorizationProvider struct {
	enforcer *casbin.Enforcer
}

var _ authorization.AuthorizationProvider = (*AuthorizationProvider)(nil)

func NewAuthorizationProvider(persistAdapter persist.Adapter) (*AuthorizationProvider, error) {
	casbinModel, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(casbinModel, persistAdapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)

	err = enforcer.LoadPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to load stored policy: %w", err)
	}

	return &AuthorizationProvider{
		enforcer: enforcer,
	}, nil
}

func (ap *AuthorizationProvider) CheckAccess(
	_ context.Context,
	req authorization.CheckAccessRequest,
) (*authorization.CheckAccessResponse, error) {
	if req.Object == "" {
		req.Object = ObjectNone
	}

	allowed, err := ap.enforcer.Enforce(req.Subject, req.Domain, req.Object, req.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to enforce policy: %w", err)
	}

	return &authorization.CheckAccessResponse{Allowed: allowed}, nil
}

func (ap *AuthorizationProvider) AddToGroup(_ context.Context, sub string, groups ...string) error {
	for _, group := range groups {
		err := addGroupingPolicyIfNotExists(ap.enforcer, sub, group)
		if err != nil {
			return fmt.Errorf("failed to add %q to group %q: %w", sub, group, err)
		}
	}

	return nil
}

func (ap *AuthorizationProvider) RemoveFromGroups(_ context.Context, sub string) error {
	_, err := ap.enforcer.RemoveFilteredGroupingPolicy(0, sub)
	if err != nil {
		return fmt.Errorf("failed to remove %q from groups: %w", sub, err)
	}

	return nil
}

// AddPolicyFromCSV adds every rule of a casbin policy CSV that is not stored
// yet. Lines starting with # are comments.
func (ap *AuthorizationProvider) AddPolicyFromCSV(_ context.Context, policyContent string) error {
	reader := csv.NewReader(strings.NewReader(policyContent))
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read policy content: %w", err)
	}

	for _, record := range records {
		record = trimRecord(record)
		if len(record) == 0 || record[0] == "" {
			continue
		}

		err = addPolicyFromRecord(ap.enforcer, record)
		if err != nil {
			return fmt.Errorf("failed to add policy from record: %w", err)
		}
	}

	return nil
}

func trimRecord(record []string) []string {
	trimmed := make([]string, len(record))
	for i := range record {
		trimmed[i] = strings.TrimSpace(record[i])
	}

	return trimmed
}

func addPolicyFromRecord(enforcer *casbin.Enforcer, record []string) error {
	switch record[0] {
	case "p":
		if len(record) != 5 {
			return &MalformedPolicyError{Record: record}
		}

		return addPolicyIfNotExists(enforcer, record[1:]...)
	case "g":
		if len(record) != 3 {
			return &MalformedPolicyError{Record: record}
		}

		return addGroupingPolicyIfNotExists(enforcer, record[1:]...)
	default:
		return &UnknownPolicyTypeError{PolicyType: record[0]}
	}
}

func toArgs(params []string) []any {
	args := make([]any, len(params))
	for i := range params {
		args[i] = params[i]
	}

	return args
}

func addPolicyIfNotExists(enforcer *casbin.Enforcer, params ...string) error {
	args := toArgs(params)

	exists, err := enforcer.HasPolicy(args...)
	if err != nil {
		return fmt.Errorf("failed to check policy: %w", err)
	}

	if exists {
		return nil
	}

	_, err = enforcer.AddPolicy(args...)
	if err != nil {
		return fmt.Errorf("failed to add policy: %w", err)
	}

	return nil
}

func addGroupingPolicyIfNotExists(enforcer *casbin.Enforcer, params ...string) error {
	args := toArgs(params)

	exists, err := enforcer.HasGroupingPolicy(args...)
	if err != nil {
		return fmt.Errorf("failed to check grouping policy: %w", err)
	}

	if exists {
		return nil
	}

	_, err = enforcer.AddGroupingPolicy(args...)
	if err != nil {
		return fmt.Errorf("failed to add grouping policy: %w", err)
	}

	return nil
}
