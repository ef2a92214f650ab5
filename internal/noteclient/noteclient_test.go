package noteclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/unotes/internal/fakeapi"
	"github.com/rcliao/unotes/internal/httpapi"
	"github.com/rcliao/unotes/internal/model"
)

func newTestClient(t *testing.T) (*Client, *fakeapi.Server, string) {
	t.Helper()
	srv := fakeapi.New("/api/oauth2")
	t.Cleanup(srv.Close)
	srv.AddUser("alice", "password1")
	at, _ := srv.Issue("alice")
	return New(srv.NoteURL()), srv, at
}

func TestCRUDRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, srv, token := newTestClient(t)

	high := model.PriorityHigh
	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res, err := c.Create(ctx, token, model.CreateInput{Title: "A", Content: "a", Priority: &high, CompletionTime: &due})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.NotEmpty(t, res.UserID)

	got, err := c.Get(ctx, token, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
	require.NotNil(t, got.CompletionTime)
	assert.True(t, due.Equal(*got.CompletionTime))

	require.NoError(t, c.Update(ctx, token, UpdateRequest{ID: res.ID, NewTitle: "B", NewContent: "b"}))
	stored := srv.Notes("alice")
	require.Len(t, stored, 1)
	assert.Equal(t, "B", stored[0].Title)

	require.NoError(t, c.Delete(ctx, token, res.ID))
	assert.Empty(t, srv.Notes("alice"))
}

func TestListShapesFromService(t *testing.T) {
	ctx := context.Background()
	c, srv, token := newTestClient(t)

	_, err := c.List(ctx, token)
	assert.True(t, httpapi.IsStatus(err, http.StatusNotFound), "empty list is a 404, got %v", err)

	srv.SeedNote("alice", fakeapi.Note{Title: "one"})
	p, err := c.ListRaw(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, PayloadSingle, p.Kind)
	assert.Len(t, p.Notes, 1)

	srv.SeedNote("alice", fakeapi.Note{Title: "two"})
	p, err = c.ListRaw(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, PayloadStream, p.Kind)
	assert.Len(t, p.Notes, 2)

	srv.SetListMode(fakeapi.ListBatch)
	notes, err := c.List(ctx, token)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	c, _, _ := newTestClient(t)

	_, err := c.List(context.Background(), "")
	assert.True(t, httpapi.IsStatus(err, http.StatusUnauthorized), "got %v", err)
}

func TestGetMissing(t *testing.T) {
	c, _, token := newTestClient(t)

	_, err := c.Get(context.Background(), token, "nope")
	assert.True(t, httpapi.IsStatus(err, http.StatusNotFound), "got %v", err)
}
