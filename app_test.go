package forumgw_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nasermirzaei89/forumgw"
	"github.com/nasermirzaei89/forumgw/discuss"
	"github.com/nasermirzaei89/forumgw/seed"
	"github.com/nasermirzaei89/forumgw/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig(t *testing.T) *forumgw.Config {
	t.Helper()

	return &forumgw.Config{
		DBDSN: "file:" + filepath.Join(t.TempDir(), "forumgw.db") +
			"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate",
		Server:            &server.Server{Host: "127.0.0.1", Port: "0"},
		SessionName:       "forumgw-test",
		SessionKey:        "0123456789abcdef0123456789abcdef",
		CSRFAuthKey:       "0123456789abcdef0123456789abcdef",
		Location:          time.UTC,
		CommentEditWindow: discuss.DefaultEditWindow,
	}
}

func newTestApp(t *testing.T, cfg *forumgw.Config) (*forumgw.App, *httptest.Server) {
	t.Helper()

	ctx := context.Background()

	app, err := forumgw.NewApp(ctx, cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(app.Handler())

	t.Cleanup(func() {
		srv.Close()
		app.Close(ctx)
	})

	return app, srv
}

func send(t *testing.T, c *http.Client, method, url string, body any) *http.Response {
	t.Helper()

	var payload []byte

	if body != nil {
		var err error

		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader(payload))
	require.NoError(t, err)

	res, err := c.Do(req)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = res.Body.Close()
	})

	return res
}

func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{Jar: jar}
}

func TestApp_DefaultPolicy(t *testing.T) {
	cfg := newConfig(t)

	mr := miniredis.RunT(t)
	cfg.RedisURL = "redis://" + mr.Addr()

	_, srv := newTestApp(t, cfg)

	guest := newClient(t)

	res := send(t, guest, http.MethodGet, srv.URL+"/posts", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = send(t, guest, http.MethodGet, srv.URL+"/search?query=hello", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	user := newClient(t)
	creds := map[string]string{"username": "alice", "password": "password123"}

	res = send(t, user, http.MethodPost, srv.URL+"/register", creds)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res = send(t, user, http.MethodPost, srv.URL+"/login", creds)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = send(t, user, http.MethodPost, srv.URL+"/posts", map[string]any{"title": "First post", "content": "hello"})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var post struct {
		ID int64 `json:"id"`
	}

	require.NoError(t, json.NewDecoder(res.Body).Decode(&post))

	commentsURL := srv.URL + "/posts/" + strconv.FormatInt(post.ID, 10) + "/comments"
	comment := map[string]string{"content": "same words"}

	for range 3 {
		res = send(t, user, http.MethodPost, commentsURL, comment)
		require.Equal(t, http.StatusCreated, res.StatusCode)
	}

	res = send(t, user, http.MethodPost, commentsURL, comment)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)

	res = send(t, user, http.MethodGet, srv.URL+"/notifications", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestApp_PolicyFileDeniesMissingRules(t *testing.T) {
	cfg := newConfig(t)

	policyFile := filepath.Join(t.TempDir(), "policy.csv")
	require.NoError(t, os.WriteFile(policyFile, []byte(`g, system:anonymous, system:unauthenticated
p, system:unauthenticated, github.com/nasermirzaei89/forumgw/contents, *, listPosts
p, system:authenticated, github.com/nasermirzaei89/forumgw/contents, *, listPosts
`), 0o600))

	cfg.AuthorizationPolicyFile = policyFile

	_, srv := newTestApp(t, cfg)

	user := newClient(t)
	creds := map[string]string{"username": "bob", "password": "password123"}

	res := send(t, user, http.MethodPost, srv.URL+"/register", creds)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res = send(t, user, http.MethodPost, srv.URL+"/login", creds)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = send(t, user, http.MethodGet, srv.URL+"/posts", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = send(t, user, http.MethodPost, srv.URL+"/modules", map[string]string{"name": "Databases"})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestApp_Seed(t *testing.T) {
	ctx := context.Background()
	cfg := newConfig(t)

	app, err := forumgw.NewApp(ctx, cfg)
	require.NoError(t, err)

	summary, err := app.Seed(ctx, seed.Options{Users: 3, Posts: 4, Modules: 2, CommentsPerPost: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Posts)

	_, srv := newTestApp(t, cfg)

	res := send(t, newClient(t), http.MethodGet, srv.URL+"/posts", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var page struct {
		Total int `json:"total"`
	}

	require.NoError(t, json.NewDecoder(res.Body).Decode(&page))
	assert.Equal(t, 4, page.Total)
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	cfg := newConfig(t)

	require.NoError(t, forumgw.MigrateUp(ctx, cfg))
	require.NoError(t, forumgw.MigrateDown(ctx, cfg))
	require.NoError(t, forumgw.MigrateUp(ctx, cfg))
}
