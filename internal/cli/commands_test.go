package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scribe/internal/auth"
	"github.com/roach88/scribe/internal/blog"
	"github.com/roach88/scribe/internal/httpapi"
	"github.com/roach88/scribe/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const testSecret = "cli-test-secret-0123456789"

var scribeEnv = []string{
	"SCRIBE_SERVER_ADDR", "SCRIBE_DATABASE_DRIVER", "SCRIBE_DATABASE_DSN",
	"SCRIBE_JWT_SECRET", "SCRIBE_TOKEN_TTL", "SCRIBE_SITE_NAME", "SCRIBE_BASE_URL",
	"SCRIBE_FEED_LIMIT", "SCRIBE_AUTOSAVE_INTERVAL", "SCRIBE_LOG_FORMAT",
}

type cliEnv struct {
	dir    string
	dbPath string
	config string
}

// newCLIEnv writes a config pointing at a fresh SQLite database.
func newCLIEnv(t *testing.T, secret string) *cliEnv {
	t.Helper()
	for _, name := range scribeEnv {
		t.Setenv(name, "")
	}

	dir := t.TempDir()
	env := &cliEnv{dir: dir, dbPath: filepath.Join(dir, "scribe.db"), config: filepath.Join(dir, "scribe.yaml")}
	cfg := fmt.Sprintf(`database:
  driver: sqlite
  dsn: %s
auth:
  jwt_secret: %q
site:
  name: Scribe
  base_url: https://scribe.example
autosave:
  interval: 20ms
`, env.dbPath, secret)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// seed opens the database directly and runs fn against a service.
func (e *cliEnv) seed(t *testing.T, fn func(ctx context.Context, svc *blog.Service)) {
	t.Helper()
	st, err := store.Open(e.dbPath)
	require.NoError(t, err)
	defer st.Close()
	fn(context.Background(), blog.NewService(st))
}

func TestMigrateCommand(t *testing.T) {
	env := newCLIEnv(t, testSecret)

	out, err := env.run(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Database ready (sqlite: %s)\n", env.dbPath), out)
	assert.FileExists(t, env.dbPath)

	// Idempotent.
	_, err = env.run(t, "migrate")
	require.NoError(t, err)
}

func TestMigrateCommand_BadConfig(t *testing.T) {
	env := newCLIEnv(t, "short")

	_, err := env.run(t, "migrate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestUserCreateCommand(t *testing.T) {
	env := newCLIEnv(t, testSecret)

	out, err := env.run(t, "user", "create", "--email", "alice@example.com", "--name", "Alice")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Created user alice ("), out)

	out, err = env.run(t, "--format", "json", "user", "create", "--email", "alice@elsewhere.example")
	require.NoError(t, err)
	var resp struct {
		Status string    `json:"status"`
		Data   blog.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "alice1", resp.Data.Username)
}

func TestUserCreateCommand_Invalid(t *testing.T) {
	env := newCLIEnv(t, testSecret)

	out, err := env.run(t, "user", "create", "--email", "!!!@example.com")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]: Username is required")
}

func TestUserTokenCommand(t *testing.T) {
	env := newCLIEnv(t, testSecret)
	_, err := env.run(t, "user", "create", "--username", "alice")
	require.NoError(t, err)

	out, err := env.run(t, "user", "token", "@alice")
	require.NoError(t, err)

	id, err := auth.NewIssuer(testSecret, time.Hour).Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
	assert.NotEmpty(t, id.UserID)

	_, err = env.run(t, "user", "token", "nobody")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestUserTokenCommand_RequiresSecret(t *testing.T) {
	env := newCLIEnv(t, "")
	_, err := env.run(t, "user", "create", "--username", "alice")
	require.NoError(t, err)

	_, err = env.run(t, "user", "token", "alice")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPostListCommand(t *testing.T) {
	env := newCLIEnv(t, testSecret)
	env.seed(t, func(ctx context.Context, svc *blog.Service) {
		u, err := svc.CreateUser(ctx, blog.NewUser{Username: "alice"})
		require.NoError(t, err)
		caller := auth.Identity{UserID: u.ID, Username: u.Username}
		_, err = svc.Create(ctx, caller, blog.CreateInput{Title: "Published one", Content: "<p>hi</p>", Publish: true})
		require.NoError(t, err)
		_, err = svc.Create(ctx, caller, blog.CreateInput{Title: "Secret draft"})
		require.NoError(t, err)
	})

	out, err := env.run(t, "post", "list", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "STATE")
	assert.Contains(t, out, "published-one")
	assert.NotContains(t, out, "secret-draft")

	out, err = env.run(t, "--format", "json", "post", "list", "alice", "--all")
	require.NoError(t, err)
	var resp struct {
		Data []PostRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	states := []string{resp.Data[0].State, resp.Data[1].State}
	assert.ElementsMatch(t, []string{"draft", "published"}, states)

	_, err = env.run(t, "post", "list", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPostListCommand_Empty(t *testing.T) {
	env := newCLIEnv(t, testSecret)
	_, err := env.run(t, "user", "create", "--username", "bob")
	require.NoError(t, err)

	out, err := env.run(t, "post", "list", "bob")
	require.NoError(t, err)
	assert.Equal(t, "No posts.\n", out)
}

func TestFeedCommand(t *testing.T) {
	env := newCLIEnv(t, testSecret)
	env.seed(t, func(ctx context.Context, svc *blog.Service) {
		u, err := svc.CreateUser(ctx, blog.NewUser{Username: "alice", DisplayName: "Alice"})
		require.NoError(t, err)
		_, err = svc.Create(ctx, auth.Identity{UserID: u.ID}, blog.CreateInput{Title: "Feed me", Content: "<p>x</p>", Publish: true})
		require.NoError(t, err)
	})

	out, err := env.run(t, "feed", "alice")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, "<title>Alice - Scribe</title>")
	assert.Contains(t, out, "<link>https://scribe.example/@alice/feed-me</link>")

	_, err = env.run(t, "feed", "ghost")
	require.Error(t, err)
	assert.Equal(t, "User not found", err.Error())
}

func TestAutosaveCommand(t *testing.T) {
	env := newCLIEnv(t, testSecret)

	st, err := store.Open(env.dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	svc := blog.NewService(st)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, blog.NewUser{Username: "alice"})
	require.NoError(t, err)
	caller := auth.Identity{UserID: u.ID, Username: u.Username}
	post, err := svc.Create(ctx, caller, blog.CreateInput{Title: "Draft", Content: "<p>old</p>"})
	require.NoError(t, err)

	issuer := auth.NewIssuer(testSecret, time.Hour)
	token, err := issuer.Issue(caller)
	require.NoError(t, err)
	srv := httptest.NewServer(httpapi.New(svc, issuer, httpapi.Options{}).Handler())
	t.Cleanup(srv.Close)

	file := filepath.Join(env.dir, "draft.html")
	require.NoError(t, os.WriteFile(file, []byte("<p>new</p>"), 0o600))

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--config", env.config, "autosave",
		"--api", srv.URL, "--token", token,
		"--post", post.ID, "--file", file, "--poll", "10ms",
	})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(runCtx) }()

	require.Eventually(t, func() bool {
		p, err := st.PostByID(ctx, post.ID)
		return err == nil && p.Content == "<p>new</p>"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("autosave did not stop after cancel")
	}

	p, err := st.PostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft", p.Title)
	assert.False(t, p.Published, "autosave must not change publication state")
}
