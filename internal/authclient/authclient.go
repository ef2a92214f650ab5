// Package authclient wraps the authentication service's oauth2 endpoints.
package authclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/rcliao/unotes/internal/httpapi"
	"github.com/rcliao/unotes/internal/model"
)

// DefaultBasePath is the oauth2 prefix of current auth service builds.
// Older builds serve the same endpoints under "/api/auth/oauth2".
const DefaultBasePath = "/api/oauth2"

const (
	MinUsernameLen = 4
	MaxUsernameLen = 32
	MinPasswordLen = 8
	MaxPasswordLen = 64
)

// Credentials are a username/password pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate applies the service's length rules locally.
func (c Credentials) Validate() error {
	if n := utf8.RuneCountInString(c.Username); n < MinUsernameLen || n > MaxUsernameLen {
		return fmt.Errorf("%w: username must be %d to %d characters", model.ErrInvalidInput, MinUsernameLen, MaxUsernameLen)
	}
	if n := utf8.RuneCountInString(c.Password); n < MinPasswordLen || n > MaxPasswordLen {
		return fmt.Errorf("%w: password must be %d to %d characters", model.ErrInvalidInput, MinPasswordLen, MaxPasswordLen)
	}
	return nil
}

// Client issues sign-up, sign-in, sign-out and refresh requests. It holds no
// session state.
type Client struct {
	api *httpapi.Client
}

// New creates a client for an auth service base URL that already includes
// the oauth2 prefix, e.g. "http://localhost:8082/api/oauth2".
func New(baseURL string, opts ...httpapi.Option) *Client {
	return &Client{api: httpapi.New(baseURL, opts...)}
}

// SignUp creates an account. 400 means invalid format, 409 a taken username.
func (c *Client) SignUp(ctx context.Context, cred Credentials) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	_, err := c.api.Do(ctx, httpapi.Request{
		Method: http.MethodPost,
		Path:   "/sign-up",
		Body:   cred,
	})
	return err
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, cred Credentials) (model.Session, error) {
	if cred.Username == "" || cred.Password == "" {
		return model.Session{}, fmt.Errorf("%w: username and password are required", model.ErrInvalidInput)
	}
	resp, err := c.api.Do(ctx, httpapi.Request{
		Method: http.MethodPost,
		Path:   "/sign-in",
		Body:   cred,
	})
	if err != nil {
		return model.Session{}, err
	}
	return decodeSession(resp)
}

// SignOut invalidates the session of the given access token. The token
// travels in the body, not as a header.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.api.Do(ctx, httpapi.Request{
		Method: http.MethodPost,
		Path:   "/sign-out",
		Body:   struct {
			AccessToken string `json:"access_token"`
		}{accessToken},
	})
	return err
}

// Refresh trades a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	resp, err := c.api.Do(ctx, httpapi.Request{
		Method: http.MethodGet,
		Path:   "/refresh",
		Query:  url.Values{"t": {refreshToken}},
	})
	if err != nil {
		return model.Session{}, err
	}
	return decodeSession(resp)
}

func decodeSession(resp *httpapi.Response) (model.Session, error) {
	var s model.Session
	if err := resp.Decode(&s); err != nil {
		return model.Session{}, err
	}
	if s.AccessToken == "" || s.RefreshToken == "" {
		return model.Session{}, fmt.Errorf("auth response missing tokens")
	}
	return s, nil
}
