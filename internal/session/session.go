// Package session decides whether the client is signed in and recovers
// lapsed sessions with the stored refresh token.
//
// The access token is short-lived and never renewed ahead of time. The only
// renewal trigger is an authenticated probe that fails.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/rcliao/unotes/internal/authclient"
	"github.com/rcliao/unotes/internal/httpapi"
	"github.com/rcliao/unotes/internal/model"
	"github.com/rcliao/unotes/internal/store"
)

// ErrSignedOut is returned by operations that need a session when none can
// be established.
var ErrSignedOut = errors.New("not signed in")

// State is the outcome of resolving a session.
type State int

const (
	SignedOut State = iota
	SignedIn
)

func (s State) String() string {
	if s == SignedIn {
		return "signed_in"
	}
	return "signed_out"
}

// Result is returned by Resolve.
type Result struct {
	State State
	// Renewed is set when the session was recovered with the refresh token.
	// Dependent state loaded under the previous session must be reloaded.
	Renewed bool
}

// EventKind says how the session changed.
type EventKind int

const (
	EventSignedIn EventKind = iota
	EventRenewed
	EventSignedOut
)

func (k EventKind) String() string {
	switch k {
	case EventSignedIn:
		return "signed_in"
	case EventRenewed:
		return "renewed"
	case EventSignedOut:
		return "signed_out"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered to change listeners.
type Event struct {
	Kind EventKind
}

// Prober performs a lightweight authenticated request. The note client's
// List satisfies it.
type Prober interface {
	List(ctx context.Context, token string) ([]model.Note, error)
}

// Authenticator is the subset of the auth client the resolver uses.
type Authenticator interface {
	SignIn(ctx context.Context, cred authclient.Credentials) (model.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (model.Session, error)
}

// Resolver owns the session tokens for one client instance.
type Resolver struct {
	tokens store.TokenStore
	auth   Authenticator
	probe  Prober
	logger *slog.Logger

	mu        sync.Mutex
	listeners []func(Event)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for session transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver over the given token store and clients.
func NewResolver(tokens store.TokenStore, auth Authenticator, probe Prober, opts ...Option) *Resolver {
	r := &Resolver{
		tokens: tokens,
		auth:   auth,
		probe:  probe,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnChange registers a listener. Listeners run synchronously, in
// registration order, on the goroutine that changed the session.
func (r *Resolver) OnChange(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Resolver) notify(kind EventKind) {
	r.mu.Lock()
	ls := append([]func(Event){}, r.listeners...)
	r.mu.Unlock()
	for _, fn := range ls {
		fn(Event{Kind: kind})
	}
}

// AccessToken returns the current access token, or store.ErrNoToken.
func (r *Resolver) AccessToken(ctx context.Context) (string, error) {
	return r.tokens.Token(ctx, store.AccessToken)
}

// Resolve determines whether the client is signed in.
//
// A successful probe, or a 404 from it (authenticated, no notes), means
// signed in. Any other structured HTTP failure triggers a silent refresh.
// A probe failure that is not a structured HTTP error is returned as err.
func (r *Resolver) Resolve(ctx context.Context) (Result, error) {
	access, err := r.tokens.Token(ctx, store.AccessToken)
	switch {
	case errors.Is(err, store.ErrNoToken):
		r.logger.DebugContext(ctx, "no access token, trying refresh")
	case err != nil:
		return Result{}, fmt.Errorf("read access token: %w", err)
	default:
		_, perr := r.probe.List(ctx, access)
		if perr == nil {
			return Result{State: SignedIn}, nil
		}
		he, ok := httpapi.AsHTTPError(perr)
		if !ok {
			return Result{}, fmt.Errorf("probe session: %w", perr)
		}
		if he.Code == http.StatusNotFound {
			return Result{State: SignedIn}, nil
		}
		r.logger.DebugContext(ctx, "probe rejected, trying refresh", "status", he.Code)
	}

	return r.refresh(ctx)
}

func (r *Resolver) refresh(ctx context.Context) (Result, error) {
	rt, err := r.tokens.Token(ctx, store.RefreshToken)
	if errors.Is(err, store.ErrNoToken) {
		return Result{State: SignedOut}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("read refresh token: %w", err)
	}

	sess, err := r.auth.Refresh(ctx, rt)
	if err != nil {
		if he, ok := httpapi.AsHTTPError(err); ok {
			r.logger.InfoContext(ctx, "refresh rejected, session cleared", "status", he.Code)
			if cerr := r.clear(ctx); cerr != nil {
				return Result{}, cerr
			}
			r.notify(EventSignedOut)
		} else {
			r.logger.WarnContext(ctx, "refresh failed", "error", err)
		}
		return Result{State: SignedOut}, nil
	}

	if err := r.store(ctx, sess); err != nil {
		return Result{}, err
	}
	r.logger.InfoContext(ctx, "session renewed")
	r.notify(EventRenewed)
	return Result{State: SignedIn, Renewed: true}, nil
}

// SignIn exchanges credentials for a session and stores it.
func (r *Resolver) SignIn(ctx context.Context, username, password string) error {
	sess, err := r.auth.SignIn(ctx, authclient.Credentials{Username: username, Password: password})
	if err != nil {
		return err
	}
	if err := r.store(ctx, sess); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "signed in", "username", username)
	r.notify(EventSignedIn)
	return nil
}

// SignOut ends the session remotely when an access token is held and
// always clears the local tokens. The remote error, if any, is returned
// after the tokens are gone.
func (r *Resolver) SignOut(ctx context.Context) error {
	var remoteErr error
	access, err := r.tokens.Token(ctx, store.AccessToken)
	switch {
	case err == nil:
		remoteErr = r.auth.SignOut(ctx, access)
	case !errors.Is(err, store.ErrNoToken):
		return fmt.Errorf("read access token: %w", err)
	}

	if err := r.clear(ctx); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "signed out")
	r.notify(EventSignedOut)
	return remoteErr
}

func (r *Resolver) store(ctx context.Context, s model.Session) error {
	if err := r.tokens.SetToken(ctx, store.AccessToken, s.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := r.tokens.SetToken(ctx, store.RefreshToken, s.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (r *Resolver) clear(ctx context.Context) error {
	if err := r.tokens.ClearToken(ctx, store.AccessToken); err != nil {
		return fmt.Errorf("clear access token: %w", err)
	}
	if err := r.tokens.ClearToken(ctx, store.RefreshToken); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
