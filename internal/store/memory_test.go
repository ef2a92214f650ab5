package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Token(ctx, AccessToken); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	s.SetToken(ctx, AccessToken, "a")
	if v, _ := s.Token(ctx, AccessToken); v != "a" {
		t.Errorf("expected 'a', got %q", v)
	}
	s.ClearToken(ctx, AccessToken)
	if _, err := s.Token(ctx, AccessToken); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected cleared, got %v", err)
	}
}

func TestSplitStoreRoutesByKind(t *testing.T) {
	ctx := context.Background()
	access := NewMemoryStore()
	refresh := newTestStore(t)
	s := &SplitStore{Access: access, Refresh: refresh}

	s.SetToken(ctx, AccessToken, "a")
	s.SetToken(ctx, RefreshToken, "r")

	if v, _ := access.Token(ctx, AccessToken); v != "a" {
		t.Errorf("access token should be in memory store, got %q", v)
	}
	if _, err := access.Token(ctx, RefreshToken); !errors.Is(err, ErrNoToken) {
		t.Error("refresh token leaked into access store")
	}
	if v, _ := refresh.Token(ctx, RefreshToken); v != "r" {
		t.Errorf("refresh token should be in sqlite store, got %q", v)
	}
	if _, err := refresh.Token(ctx, AccessToken); !errors.Is(err, ErrNoToken) {
		t.Error("access token leaked into refresh store")
	}

	s.ClearToken(ctx, RefreshToken)
	if _, err := s.Token(ctx, RefreshToken); !errors.Is(err, ErrNoToken) {
		t.Error("expected refresh token cleared")
	}
}
