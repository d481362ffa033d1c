// Package auth gates mutating inventory operations behind the admin password
package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"gitlab.connectwisedev.com/paint-service/pkg/store"
)

var (
	ErrUnauthorized = errors.New("admin authorization required")
	ErrNoPassword   = errors.New("admin password not set")
)

// Session is the authorization context handed to mutating operations
type Session struct {
	User  string
	Admin bool
}

// Anonymous is the zero session
var Anonymous = Session{}

// Require returns ErrUnauthorized unless s is an admin session
func (s Session) Require() error {
	if !s.Admin {
		return ErrUnauthorized
	}
	return nil
}

// HashStore persists the admin password hash
type HashStore interface {
	PasswordHash(ctx context.Context) (string, error)
	SetPasswordHash(ctx context.Context, hash string) error
}

// Credentials verifies and rotates the admin password
type Credentials struct {
	store  HashStore
	logger *zap.Logger
	cost   int
}

// NewCredentials returns Credentials over store
func NewCredentials(store HashStore, logger *zap.Logger) *Credentials {
	return &Credentials{store: store, logger: logger, cost: bcrypt.DefaultCost}
}

// Seed stores defaultPassword when no hash exists yet
func (c *Credentials) Seed(ctx context.Context, defaultPassword string) error {
	_, err := c.store.PasswordHash(ctx)
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	c.logger.Info("seeding default admin password")
	return c.set(ctx, defaultPassword)
}

// Verify reports whether password matches. Store errors count as a mismatch
func (c *Credentials) Verify(ctx context.Context, password string) bool {
	hash, err := c.store.PasswordHash(ctx)
	if err != nil {
		c.logger.Warn("admin password lookup failed", zap.Error(err))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authorize turns a password into a session
func (c *Credentials) Authorize(ctx context.Context, user, password string) Session {
	if password == "" || !c.Verify(ctx, password) {
		return Session{User: user}
	}
	return Session{User: user, Admin: true}
}

// Change replaces the password after checking the current one
func (c *Credentials) Change(ctx context.Context, current, next string) error {
	if next == "" {
		return ErrNoPassword
	}
	if !c.Verify(ctx, current) {
		return ErrUnauthorized
	}
	return c.set(ctx, next)
}

func (c *Credentials) set(ctx context.Context, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	return c.store.SetPasswordHash(ctx, string(hash))
}
