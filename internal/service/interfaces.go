package service

import (
	"context"

	"github.com/chatterbox-app/auth-service/internal/domain"
	"github.com/chatterbox-app/auth-service/internal/dto"
)

// AuthService is the orchestration surface the transport layer calls. It
// owns no persistent state of its own.
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error)

	// Resolve turns a raw credential (an "Authorization: Bearer <token>"
	// header value or a bare cookie token) into the authenticated user.
	// Any failure yields nil so callers can treat it as anonymous.
	Resolve(ctx context.Context, rawCredential string) *domain.User

	BeginOAuth() (redirectURL string, err error)
	CompleteOAuth(ctx context.Context, code, state string) (*AuthResult, error)

	GetUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) error
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	EmailAvailable(ctx context.Context, email string) (bool, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
}

// IdentityBroker is the slice of the oauth broker the gateway needs.
type IdentityBroker interface {
	BeginAuthorization() (redirectURL, state string, err error)
	CompleteAuthorization(ctx context.Context, code, state string) (*domain.User, error)
}
