// Package identity works out which backend user is running the dashboard.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fpdash/fpboard/internal/models"
)

// ErrNoIdentity is returned when nothing identifies the user
var ErrNoIdentity = errors.New("unable to determine current user")

// fallbackID is stable across runs so snapshots keyed by it survive restarts
var fallbackID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("fpboard-fallback-user")).String()

// Directory looks users up in the backend
type Directory interface {
	UserByID(ctx context.Context, id string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
}

// Resolver tries, in order: a configured user id, the oid claim of the
// access token, and a lookup by email
type Resolver struct {
	Dir    Directory
	UserID string
	Token  string
	Email  string
}

// NormalizeID strips braces and lower-cases a GUID. ok is false when s is
// not a GUID.
func NormalizeID(s string) (string, bool) {
	s = strings.Trim(strings.TrimSpace(s), "{}")
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// TokenObjectID reads the oid claim from an access token. The signature is
// not checked; the backend does that on every request.
func TokenObjectID(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	oid, _ := claims["oid"].(string)
	id, ok := NormalizeID(oid)
	if !ok {
		return "", fmt.Errorf("token has no usable oid claim")
	}
	return id, nil
}

// Resolve returns the current user or ErrNoIdentity
func (r Resolver) Resolve(ctx context.Context) (models.User, error) {
	id, ok := NormalizeID(r.UserID)
	if !ok && r.Token != "" {
		oid, err := TokenObjectID(r.Token)
		if err != nil {
			slog.Debug("no user id in token", "error", err)
		}
		id, ok = oid, err == nil
	}
	if ok {
		if r.Dir == nil {
			return models.User{ID: id}, nil
		}
		u, err := r.Dir.UserByID(ctx, id)
		if err != nil {
			return models.User{}, fmt.Errorf("get user %s: %w", id, err)
		}
		return u, nil
	}

	if r.Email != "" && r.Dir != nil {
		u, err := r.Dir.UserByEmail(ctx, r.Email)
		if err != nil {
			return models.User{}, fmt.Errorf("find user %s: %w", r.Email, err)
		}
		return u, nil
	}
	return models.User{}, ErrNoIdentity
}

// ResolveOrFallback never fails. When resolution fails the returned user is
// marked as a fallback so it is always labeled and cannot save changes.
func (r Resolver) ResolveOrFallback(ctx context.Context) models.User {
	u, err := r.Resolve(ctx)
	if err == nil {
		return u
	}
	slog.Warn("using fallback identity", "error", err)
	return Fallback()
}

// Fallback is the placeholder user shown when the real one is unknown
func Fallback() models.User {
	return models.User{
		ID:        fallbackID,
		Name:      "Guest User",
		FirstName: "Guest",
		LastName:  "User",
		Fallback:  true,
	}
}
