package authorization

import (
	"context"
	"fmt"

	authcontext "github.com/nasermirzaei89/forumgw/authentication/context"
)

// Client answers authorization questions for the subject carried by a context.
type Client struct {
	authzSvc *Service
}

func NewClient(authzSvc *Service) *Client {
	return &Client{
		authzSvc: authzSvc,
	}
}

// CheckAccess returns an *AccessDeniedError unless the current subject may
// perform action on object within domain.
func (c *Client) CheckAccess(ctx context.Context, domain, object, action string) error {
	subject := authcontext.GetSubject(ctx)

	res, err := c.authzSvc.CheckAccess(ctx, CheckAccessRequest{
		Subject: subject,
		Domain:  domain,
		Object:  object,
		Action:  action,
	})
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}

	if !res.Allowed {
		return &AccessDeniedError{
			Subject: subject,
			Domain:  domain,
			Object:  object,
			Action:  action,
		}
	}

	return nil
}

// CanI is CheckAccess as a boolean. Provider errors count as denial.
func (c *Client) CanI(ctx context.Context, domain, object, action string) bool {
	return c.CheckAccess(ctx, domain, object, action) == nil
}

func (c *Client) AddToGroup(ctx context.Context, sub string, group ...string) error {
	err := c.authzSvc.AddToGroup(ctx, sub, group...)
	if err != nil {
		return fmt.Errorf("failed to add %q to groups %v: %w", sub, group, err)
	}

	return nil
}

// RemoveFromGroups drops every group membership of sub.
func (c *Client) RemoveFromGroups(ctx context.Context, sub string) error {
	err := c.authzSvc.RemoveFromGroups(ctx, sub)
	if err != nil {
		return fmt.Errorf("failed to remove %q from groups: %w", sub, err)
	}

	return nil
}
