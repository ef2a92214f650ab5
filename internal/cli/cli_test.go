package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/unotes/internal/authclient"
	"github.com/rcliao/unotes/internal/fakeapi"
	"github.com/rcliao/unotes/internal/model"
	"github.com/rcliao/unotes/internal/session"
	"github.com/rcliao/unotes/internal/store"
)

type harness struct {
	srv *fakeapi.Server
	db  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range []string{
		"UNOTES_AUTH_URL", "UNOTES_NOTE_URL", "UNOTES_AUTH_BASE_PATH", "UNOTES_DB",
		"UNOTES_LOG_LEVEL", "UNOTES_HTTP_TIMEOUT", "UNOTES_PERSIST_ACCESS_TOKEN",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", t.TempDir())

	srv := fakeapi.New(authclient.DefaultBasePath)
	t.Cleanup(srv.Close)
	return &harness{srv: srv, db: filepath.Join(t.TempDir(), "session.db")}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (h *harness) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &app{stdin: strings.NewReader(stdin), stderr: &errOut}
	root := a.rootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--db", h.db, "--auth-url", h.srv.URL, "--note-url", h.srv.URL}, args...))
	err := root.ExecuteContext(context.Background())
	a.close()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func (h *harness) signedIn(t *testing.T) {
	t.Helper()
	h.srv.AddUser("alice", "password1")
	r := h.run(t, "", "signin", "-u", "alice", "-p", "password1")
	require.NoError(t, r.err)
}

func decodeNote(t *testing.T, s string) model.Note {
	t.Helper()
	var n model.Note
	require.NoError(t, json.Unmarshal([]byte(s), &n), s)
	return n
}

func TestSignUpSignInStatus(t *testing.T) {
	h := newHarness(t)

	r := h.run(t, "", "signup", "-u", "alice", "-p", "password1", "--signin")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, `"signed_in"`)

	r = h.run(t, "", "status")
	require.NoError(t, r.err)
	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &status))
	assert.Equal(t, "signed_in", status["state"])
	assert.Equal(t, false, status["renewed"])
	assert.NotEmpty(t, status["user_id"])
	assert.NotEmpty(t, status["refresh_updated_at"])
}

func TestSignUpRejectsShortPasswordLocally(t *testing.T) {
	h := newHarness(t)
	r := h.run(t, "", "signup", "-u", "alice", "-p", "short")
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, model.ErrInvalidInput)
	assert.Equal(t, 0, h.srv.Calls("sign-up"))
}

func TestStatusSignedOut(t *testing.T) {
	h := newHarness(t)
	r := h.run(t, "", "status", "--format", "text")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "state: signed_out")
}

func TestNoteLifecycle(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	r := h.run(t, "", "create", "buy milk", "--title", "Groceries", "--priority", "high", "--due", "2024-06-01T09:00:00Z")
	require.NoError(t, r.err, r.stderr)
	created := decodeNote(t, r.stdout)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "buy milk", created.Content)
	require.NotNil(t, created.Priority)
	assert.Equal(t, model.PriorityHigh, *created.Priority)

	r = h.run(t, "", "get", created.ID)
	require.NoError(t, r.err)
	assert.Equal(t, "Groceries", decodeNote(t, r.stdout).Title)

	r = h.run(t, "", "edit", created.ID, "--title", "Shopping")
	require.NoError(t, r.err, r.stderr)
	edited := decodeNote(t, r.stdout)
	assert.Equal(t, "Shopping", edited.Title)
	assert.Equal(t, "buy milk", edited.Content)

	remote := h.srv.Notes("alice")
	require.Len(t, remote, 1)
	assert.Equal(t, "Shopping", remote[0].Title)
	assert.Equal(t, "high", remote[0].Priority)

	r = h.run(t, "", "list")
	require.NoError(t, r.err)
	var listed []model.Note
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	r = h.run(t, "", "rm", created.ID)
	require.NoError(t, r.err)
	assert.Empty(t, h.srv.Notes("alice"))

	r = h.run(t, "", "list")
	require.NoError(t, r.err)
	assert.Equal(t, "[]\n", r.stdout)
}

func TestCreateFromStdin(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	r := h.run(t, "line one\nline two\n", "create", "--title", "Piped")
	require.NoError(t, r.err)
	assert.Equal(t, "line one\nline two", decodeNote(t, r.stdout).Content)
}

func TestCreateValidationSendsNothing(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	r := h.run(t, "", "create", "x", "--title", "  ")
	assert.ErrorIs(t, r.err, model.ErrInvalidInput)
	r = h.run(t, "", "create", "x", "--title", "T", "--priority", "urgent")
	assert.ErrorIs(t, r.err, model.ErrInvalidInput)
	r = h.run(t, "", "create", "x", "--title", "T", "--due", "tomorrow")
	assert.ErrorIs(t, r.err, model.ErrInvalidInput)
	assert.Equal(t, 0, h.srv.Calls("create"))
}

func TestEditUnknownNote(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	h.srv.SeedNote("alice", fakeapi.Note{ID: "1", Title: "A"})

	r := h.run(t, "", "edit", "2", "--title", "B")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "note not found")
	assert.Equal(t, 0, h.srv.Calls("update"))
}

func TestListRequiresSession(t *testing.T) {
	h := newHarness(t)
	r := h.run(t, "", "list")
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, session.ErrSignedOut)

	var buf bytes.Buffer
	printErr(&buf, r.err)
	assert.Equal(t, "error: list: not signed in\nhint: run `unotes signin`\n", buf.String())
}

func TestListRenewsExpiredSession(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	h.srv.SeedNote("alice", fakeapi.Note{ID: "b", Title: "beta"})
	h.srv.SeedNote("alice", fakeapi.Note{ID: "a", Title: "Alpha"})
	h.srv.ExpireAccessTokens()

	r := h.run(t, "", "list", "--sort", "title", "--format", "text")
	require.NoError(t, r.err, r.stderr)
	assert.Equal(t, 1, h.srv.Calls("refresh"))
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "a\tAlpha"))
	assert.True(t, strings.HasPrefix(lines[1], "b\tbeta"))

	// The renewed tokens were stored; no second refresh is needed.
	r = h.run(t, "", "list")
	require.NoError(t, r.err)
	assert.Equal(t, 1, h.srv.Calls("refresh"))
}

func TestAccessTokenNotPersisted(t *testing.T) {
	h := newHarness(t)
	t.Setenv("UNOTES_PERSIST_ACCESS_TOKEN", "false")
	h.signedIn(t)

	r := h.run(t, "", "list")
	require.NoError(t, r.err, r.stderr)
	assert.Equal(t, 1, h.srv.Calls("refresh"))
}

func TestServerErrorHint(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	h.srv.SeedNote("alice", fakeapi.Note{ID: "1", Title: "A"})
	h.srv.Fail("delete", http.StatusInternalServerError)

	r := h.run(t, "", "rm", "1")
	require.Error(t, r.err)
	var buf bytes.Buffer
	printErr(&buf, r.err)
	assert.Contains(t, buf.String(), "error: rm: delete note 1: code=500")
	assert.Contains(t, buf.String(), "hint: server error, try again later")
	assert.Len(t, h.srv.Notes("alice"), 1)
}

func TestExportImport(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	h.srv.SeedNote("alice", fakeapi.Note{ID: "1", Title: "A", Content: "first"})
	h.srv.SeedNote("alice", fakeapi.Note{ID: "2", Title: "B", Priority: "low"})

	r := h.run(t, "", "export")
	require.NoError(t, r.err)
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.Len(t, lines, 2)
	exported := r.stdout

	r = h.run(t, exported, "import")
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stdout, `"imported": 2`)
	assert.Len(t, h.srv.Notes("alice"), 4)
}

func TestImportRejectsInvalidBeforeSending(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	r := h.run(t, `[{"title":"ok"},{"title":""}]`, "import")
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, model.ErrInvalidInput)
	assert.Equal(t, 0, h.srv.Calls("create"))
}

func TestSignOut(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	r := h.run(t, "", "signout")
	require.NoError(t, r.err)

	r = h.run(t, "", "status")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, `"signed_out"`)
	assert.Equal(t, 0, h.srv.Calls("refresh"))
}

func TestInvalidFormatFlag(t *testing.T) {
	h := newHarness(t)
	r := h.run(t, "", "status", "--format", "yaml")
	require.Error(t, r.err)
}

type failingCloseStore struct{ *store.MemoryStore }

func (failingCloseStore) Close() error { return errors.New("disk gone") }

func TestCloseLogsStoreError(t *testing.T) {
	var logs bytes.Buffer
	a := &app{
		logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		tokens: failingCloseStore{store.NewMemoryStore()},
	}
	a.close()
	assert.Nil(t, a.tokens)
	assert.Contains(t, logs.String(), "close session store")
	assert.Contains(t, logs.String(), "disk gone")

	// A second close is a no-op.
	a.close()
}
