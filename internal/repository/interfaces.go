package repository

import (
	"context"

	"github.com/chatterbox-app/auth-service/internal/domain"
)

// UserRepository persists identity records. Every operation borrows a
// connection from the pool, uses it, and returns it before the call ends;
// no connection is held across calls.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByLogin resolves an identifier that may be an email or a username.
	GetByLogin(ctx context.Context, identifier string) (*domain.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// LinkProvider attaches an external provider account to an existing
	// user. The avatar is only filled in when the user has none yet.
	LinkProvider(ctx context.Context, userID, providerID string, avatarURL *string) error
	UpdateLastLogin(ctx context.Context, userID string) error
	UpdateProfile(ctx context.Context, userID, displayName string, avatarURL *string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
