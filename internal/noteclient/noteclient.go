// Package noteclient wraps the note service's REST endpoints. Every call
// carries the caller's access token as a bearer header.
package noteclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rcliao/unotes/internal/httpapi"
	"github.com/rcliao/unotes/internal/model"
)

// Client issues note requests. It holds no session state.
type Client struct {
	api *httpapi.Client
}

// New creates a client for a note service base URL such as
// "http://localhost:8081/api".
func New(baseURL string, opts ...httpapi.Option) *Client {
	return &Client{api: httpapi.New(baseURL, opts...)}
}

// Create stores a new note and returns the server-assigned id.
func (c *Client) Create(ctx context.Context, token string, in model.CreateInput) (CreateResult, error) {
	resp, err := c.api.Do(ctx, httpapi.Request{
		Method: http.MethodPost,
		Path:   "/note",
		Token:  token,
		Body: createRequest{
			Title:          in.Title,
			Content:        in.Content,
			Priority:       priorityString(in.Priority),
			CompletionTime: formatTime(in.CompletionTime),
		},
	})
	if err != nil {
		return CreateResult{}, err
	}
	var out CreateResult
	if err := resp.Decode(&out); err != nil {
		return CreateResult{}, err
	}
	if out.ID == "" {
		return CreateResult{}, fmt.Errorf("create note: response has no id")
	}
	return out, nil
}

// Get fetches one note.
func (c *Client) Get(ctx context.Context, token, id string) (model.Note, error) {
	resp, err := c.api.Do(ctx, httpapi.Request{
		Method: http.MethodGet,
		Path:   "/note/" + url.PathEscape(id),
		Token:  token,
	})
	if err != nil {
		return model.Note{}, err
	}
	var w wireNote
	if err := resp.Decode(&w); err != nil {
		return model.Note{}, err
	}
	if w.ID == "" {
		w.ID = id
	}
	return w.toModel()
}

// Update replaces the mutable fields of a note.
func (c *Client) Update(ctx context.Context, token string, r UpdateRequest) error {
	_, err := c.api.Do(ctx, httpapi.Request{
		Method: http.MethodPut,
		Path:   "/note",
		Token:  token,
		Body: updateWire{
			ID:                r.ID,
			NewTitle:          r.NewTitle,
			NewContent:        r.NewContent,
			NewPriority:       priorityString(r.NewPriority),
			NewCompletionTime: formatTime(r.NewCompletionTime),
		},
	})
	return err
}

// Delete removes a note.
func (c *Client) Delete(ctx context.Context, token, id string) error {
	_, err := c.api.Do(ctx, httpapi.Request{
		Method: http.MethodDelete,
		Path:   "/note/" + url.PathEscape(id),
		Token:  token,
	})
	return err
}

// ListRaw fetches the note list and returns it in its parsed wire shape.
// A 404 is returned as an *httpapi.HTTPError: the service uses it for an
// authenticated user without notes.
func (c *Client) ListRaw(ctx context.Context, token string) (ListPayload, error) {
	resp, err := c.api.Do(ctx, httpapi.Request{
		Method: http.MethodGet,
		Path:   "/notes",
		Token:  token,
	})
	if err != nil {
		return ListPayload{}, err
	}
	return ParseList(resp.Body)
}

// List fetches every note of the token's owner.
func (c *Client) List(ctx context.Context, token string) ([]model.Note, error) {
	p, err := c.ListRaw(ctx, token)
	if err != nil {
		return nil, err
	}
	return p.Notes, nil
}
