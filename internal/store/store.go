// Package store provides the token storage interface and its memory and
// SQLite implementations.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoToken is returned when no token of the requested kind is stored.
var ErrNoToken = errors.New("no token stored")

// Kind identifies which credential a token is.
type Kind string

const (
	// AccessToken is the short-lived credential sent to the note service.
	AccessToken Kind = "access"
	// RefreshToken is the long-lived credential used to renew a session.
	RefreshToken Kind = "refresh"
)

func (k Kind) valid() bool {
	return k == AccessToken || k == RefreshToken
}

// TokenStore defines the token storage interface.
type TokenStore interface {
	// Token returns the stored token of the given kind, or ErrNoToken.
	Token(ctx context.Context, kind Kind) (string, error)

	// SetToken stores or replaces a token. Empty values are rejected.
	SetToken(ctx context.Context, kind Kind, value string) error

	// ClearToken removes a token. Clearing an absent token is not an error.
	ClearToken(ctx context.Context, kind Kind) error

	// Close closes the store.
	Close() error
}

func checkSet(kind Kind, value string) error {
	if !kind.valid() {
		return fmt.Errorf("unknown token kind %q", kind)
	}
	if value == "" {
		return fmt.Errorf("empty %s token", kind)
	}
	return nil
}

// SplitStore keeps access and refresh tokens in separate stores, so the
// access token can live in short-term storage while the refresh token
// survives in a longer-lived one.
type SplitStore struct {
	Access  TokenStore
	Refresh TokenStore
}

var _ TokenStore = (*SplitStore)(nil)

func (s *SplitStore) route(kind Kind) (TokenStore, error) {
	switch kind {
	case AccessToken:
		return s.Access, nil
	case RefreshToken:
		return s.Refresh, nil
	}
	return nil, fmt.Errorf("unknown token kind %q", kind)
}

func (s *SplitStore) Token(ctx context.Context, kind Kind) (string, error) {
	ts, err := s.route(kind)
	if err != nil {
		return "", err
	}
	return ts.Token(ctx, kind)
}

func (s *SplitStore) SetToken(ctx context.Context, kind Kind, value string) error {
	ts, err := s.route(kind)
	if err != nil {
		return err
	}
	return ts.SetToken(ctx, kind, value)
}

func (s *SplitStore) ClearToken(ctx context.Context, kind Kind) error {
	ts, err := s.route(kind)
	if err != nil {
		return err
	}
	return ts.ClearToken(ctx, kind)
}

// Close closes both underlying stores. A store shared by both kinds is
// closed once.
func (s *SplitStore) Close() error {
	err := s.Access.Close()
	if s.Refresh != s.Access {
		if rerr := s.Refresh.Close(); err == nil {
			err = rerr
		}
	}
	return err
}
