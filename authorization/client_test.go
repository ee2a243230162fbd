package authorization_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	authcontext "github.com/nasermirzaei89/forumgw/authentication/context"
	"github.com/nasermirzaei89/forumgw/authorization"
	"github.com/nasermirzaei89/forumgw/authorization/casbin"
	"github.com/stretchr/testify/require"
)

const testPolicy = `p, group1, domain1, data1, read
p, group1, domain1, *, list
g, alice, group1
`

func newClient(t *testing.T) *authorization.Client {
	t.Helper()

	provider, err := casbin.NewAuthorizationProvider(stringadapter.NewAdapter(testPolicy))
	require.NoError(t, err)

	authzSvc, err := authorization.NewService(provider)
	require.NoError(t, err)

	return authorization.NewClient(authzSvc)
}

func TestClient_CheckAccess(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	t.Run("allowed access", func(t *testing.T) {
		err := client.CheckAccess(authcontext.WithSubject(ctx, "alice"), "domain1", "data1", "read")
		require.NoError(t, err)
	})

	t.Run("wildcard object", func(t *testing.T) {
		err := client.CheckAccess(authcontext.WithSubject(ctx, "alice"), "domain1", "anything", "list")
		require.NoError(t, err)
	})

	t.Run("denied action", func(t *testing.T) {
		err := client.CheckAccess(authcontext.WithSubject(ctx, "alice"), "domain1", "data1", "write")
		require.Error(t, err)

		accessDeniedErr := &authorization.AccessDeniedError{}
		require.ErrorAs(t, err, &accessDeniedErr)
		require.Equal(t, "alice", accessDeniedErr.Subject)
	})

	t.Run("another user", func(t *testing.T) {
		err := client.CheckAccess(authcontext.WithSubject(ctx, "bob"), "domain1", "data1", "read")

		accessDeniedErr := &authorization.AccessDeniedError{}
		require.ErrorAs(t, err, &accessDeniedErr)
	})

	t.Run("anonymous access", func(t *testing.T) {
		err := client.CheckAccess(ctx, "domain1", "data1", "read")

		accessDeniedErr := &authorization.AccessDeniedError{}
		require.ErrorAs(t, err, &accessDeniedErr)
		require.Equal(t, authcontext.Anonymous, accessDeniedErr.Subject)
	})
}

func TestClient_CanI(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	require.True(t, client.CanI(authcontext.WithSubject(ctx, "alice"), "domain1", "data1", "read"))
	require.False(t, client.CanI(authcontext.WithSubject(ctx, "alice"), "domain1", "data1", "write"))
	require.False(t, client.CanI(ctx, "domain1", "data1", "read"))
}

func TestClient_AddToGroup(t *testing.T) {
	ctx := context.Background()

	tmpFile := filepath.Join(t.TempDir(), "policy.csv")
	err := os.WriteFile(tmpFile, []byte("p, group1, domain1, data1, read\n"), 0o600)
	require.NoError(t, err)

	// the string adapter cannot save, auto-save needs a writable adapter
	provider, err := casbin.NewAuthorizationProvider(fileadapter.NewAdapter(tmpFile))
	require.NoError(t, err)

	authzSvc, err := authorization.NewService(provider)
	require.NoError(t, err)

	client := authorization.NewClient(authzSvc)

	err = client.AddToGroup(ctx, "alice", "group1")
	require.NoError(t, err)

	err = client.AddToGroup(ctx, "alice", "group1")
	require.NoError(t, err, "adding an existing membership is a no-op")

	err = client.AddToGroup(ctx, "bob", "group2")
	require.NoError(t, err)

	require.NoError(t, client.CheckAccess(authcontext.WithSubject(ctx, "alice"), "domain1", "data1", "read"))

	err = client.CheckAccess(authcontext.WithSubject(ctx, "bob"), "domain1", "data1", "read")

	accessDeniedErr := &authorization.AccessDeniedError{}
	require.ErrorAs(t, err, &accessDeniedErr)
}

func TestNewService_NilProvider(t *testing.T) {
	_, err := authorization.NewService(nil)
	require.Error(t, err)
}
