package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rcliao/unotes/internal/store"
)

// Claims are the informational fields of an access token.
type Claims struct {
	UserID    string     `json:"user_id,omitempty"`
	Subject   string     `json:"subject,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token's expiry is before now.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

type accessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ParseClaims decodes a JWT access token without verifying its signature.
// The client cannot verify tokens; the result is for display only.
func ParseClaims(token string) (Claims, error) {
	var ac accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &ac); err != nil {
		return Claims{}, fmt.Errorf("parse access token: %w", err)
	}
	c := Claims{UserID: ac.UserID, Subject: ac.Subject}
	if ac.IssuedAt != nil {
		t := ac.IssuedAt.Time
		c.IssuedAt = &t
	}
	if ac.ExpiresAt != nil {
		t := ac.ExpiresAt.Time
		c.ExpiresAt = &t
	}
	return c, nil
}

// Claims decodes the stored access token.
func (r *Resolver) Claims(ctx context.Context) (Claims, error) {
	token, err := r.tokens.Token(ctx, store.AccessToken)
	if err != nil {
		return Claims{}, err
	}
	return ParseClaims(token)
}
