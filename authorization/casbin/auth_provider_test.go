package casbin_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/nasermirzaei89/forumgw/authorization"
	"github.com/nasermirzaei89/forumgw/authorization/casbin"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T) *casbin.AuthorizationProvider {
	t.Helper()

	storeFile := filepath.Join(t.TempDir(), "store.csv")
	require.NoError(t, os.WriteFile(storeFile, nil, 0o600))

	provider, err := casbin.NewAuthorizationProvider(fileadapter.NewAdapter(storeFile))
	require.NoError(t, err)

	return provider
}

func allowed(t *testing.T, provider *casbin.AuthorizationProvider, sub, dom, obj, act string) bool {
	t.Helper()

	res, err := provider.CheckAccess(context.Background(), authorization.CheckAccessRequest{
		Subject: sub,
		Domain:  dom,
		Object:  obj,
		Action:  act,
	})
	require.NoError(t, err)

	return res.Allowed
}

func TestAddPolicyFromCSV(t *testing.T) {
	ctx := context.Background()
	provider := newProvider(t)

	err := provider.AddPolicyFromCSV(ctx, `# forum policy
g, system:anonymous, system:unauthenticated

p, system:unauthenticated, forum, *, listPosts
p, system:authenticated, forum, -, createPost
`)
	require.NoError(t, err)

	// loading the same content twice must not fail on duplicates
	err = provider.AddPolicyFromCSV(ctx, "p, system:authenticated, forum, -, createPost\n")
	require.NoError(t, err)

	require.NoError(t, provider.AddToGroup(ctx, "7", "system:authenticated"))

	require.True(t, allowed(t, provider, "system:anonymous", "forum", "42", "listPosts"))
	require.False(t, allowed(t, provider, "system:anonymous", "forum", "", "createPost"))
	require.True(t, allowed(t, provider, "7", "forum", "", "createPost"))
}

func TestRemoveFromGroups(t *testing.T) {
	ctx := context.Background()
	provider := newProvider(t)

	require.NoError(t, provider.AddPolicyFromCSV(ctx, "p, system:authenticated, forum, *, createPost\n"))
	require.NoError(t, provider.AddToGroup(ctx, "7", "system:authenticated"))
	require.NoError(t, provider.AddToGroup(ctx, "8", "system:authenticated"))

	require.NoError(t, provider.RemoveFromGroups(ctx, "7"))

	require.False(t, allowed(t, provider, "7", "forum", "1", "createPost"))
	require.True(t, allowed(t, provider, "8", "forum", "1", "createPost"))

	require.NoError(t, provider.RemoveFromGroups(ctx, "7"), "removing again is a no-op")
}

func TestAddPolicyFromCSV_Invalid(t *testing.T) {
	ctx := context.Background()
	provider := newProvider(t)

	err := provider.AddPolicyFromCSV(ctx, "x, a, b\n")

	unknownErr := &casbin.UnknownPolicyTypeError{}
	require.ErrorAs(t, err, &unknownErr)

	err = provider.AddPolicyFromCSV(ctx, "p, a, b\n")

	malformedErr := &casbin.MalformedPolicyError{}
	require.ErrorAs(t, err, &malformedErr)
}

func TestWatchPolicyFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := newProvider(t)

	policyFile := filepath.Join(t.TempDir(), "policy.csv")
	require.NoError(t, os.WriteFile(policyFile, []byte("p, mods, forum, *, deletePost\n"), 0o600))

	done := make(chan error, 1)

	go func() {
		done <- provider.WatchPolicyFile(ctx, policyFile)
	}()

	require.Eventually(t, func() bool {
		// rewrite until the watcher is registered and picks it up
		_ = os.WriteFile(policyFile, []byte("p, mods, forum, *, deletePost\n"), 0o600)

		return allowed(t, provider, "mods", "forum", "1", "deletePost")
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
