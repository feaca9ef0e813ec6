package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chatterbox-app/auth-service/internal/domain"
	"github.com/chatterbox-app/auth-service/internal/dto"
	"github.com/chatterbox-app/auth-service/internal/repository"
	"github.com/chatterbox-app/auth-service/internal/token"
	"github.com/chatterbox-app/auth-service/internal/utils"
)

// authService implements AuthService
type authService struct {
	users      repository.UserRepository
	tokens     *token.Service
	broker     IdentityBroker
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService creates the auth gateway. broker may be nil when federated
// login is not configured.
func NewAuthService(
	users repository.UserRepository,
	tokens *token.Service,
	broker IdentityBroker,
	bcryptCost int,
	logger *zap.Logger,
) AuthService {
	return &authService{
		users:      users,
		tokens:     tokens,
		broker:     broker,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a new local account and issues both tokens.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*AuthResult, error) {
	email := utils.SanitizeEmail(req.Email)

	if !utils.ValidateEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !utils.ValidateUsername(req.Username) {
		return nil, ErrInvalidUsername
	}
	if !utils.ValidatePassword(req.Password) {
		return nil, ErrWeakPassword
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Username
	}

	user := &domain.User{
		Email:        email,
		Username:     req.Username,
		PasswordHash: &passwordHash,
		DisplayName:  displayName,
		AuthProvider: domain.ProviderLocal,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		default:
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	s.logger.Info("New user registered",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
	)

	return s.issueTokens(user)
}

// Login authenticates by email or username. Unknown identifier and wrong
// password collapse into the same error.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*AuthResult, error) {
	user, err := s.users.GetByLogin(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.HasLocalPassword() || !utils.CheckPasswordHash(req.Password, *user.PasswordHash) {
		s.logger.Info("Failed login attempt", zap.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	s.stampLastLogin(ctx, user)

	s.logger.Info("User logged in", zap.String("user_id", user.ID), zap.String("username", user.Username))

	return s.issueTokens(user)
}

// Refresh verifies a refresh token, re-resolves the identity, and mints a
// fresh access token. The refresh token is not rotated, and no revocation
// list is consulted.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error) {
	payload, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	accessToken, err := s.tokens.MintAccess(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	return &dto.RefreshResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.tokens.AccessExpirySeconds(),
	}, nil
}

// Resolve authenticates a raw credential, returning nil for anything that
// is not a live access token of an active user.
func (s *authService) Resolve(ctx context.Context, rawCredential string) *domain.User {
	raw := strings.TrimSpace(rawCredential)
	if after, ok := strings.CutPrefix(raw, "Bearer "); ok {
		raw = strings.TrimSpace(after)
	}
	if raw == "" {
		return nil
	}

	payload, err := s.tokens.VerifyAccess(raw)
	if err != nil {
		return nil
	}

	user, err := s.users.GetByID(ctx, payload.UserID)
	if err != nil || !user.IsActive {
		return nil
	}

	return user
}

// BeginOAuth starts a federated login attempt.
func (s *authService) BeginOAuth() (string, error) {
	if s.broker == nil {
		return "", ErrOAuthNotConfigured
	}
	redirectURL, _, err := s.broker.BeginAuthorization()
	return redirectURL, err
}

// CompleteOAuth finishes a federated login attempt and issues tokens
// exactly as Login does.
func (s *authService) CompleteOAuth(ctx context.Context, code, state string) (*AuthResult, error) {
	if s.broker == nil {
		return nil, ErrOAuthNotConfigured
	}

	user, err := s.broker.CompleteAuthorization(ctx, code, state)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	s.logger.Info("Federated login", zap.String("user_id", user.ID), zap.String("email", user.Email))

	return s.issueTokens(user)
}

// GetUser returns the profile of a user
func (s *authService) GetUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return userResponse(user), nil
}

// UpdateProfile updates display name and avatar
func (s *authService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) error {
	if err := s.users.UpdateProfile(ctx, userID, strings.TrimSpace(req.DisplayName), req.AvatarURL); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password and stores a hash of the
// new one.
func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	if !utils.ValidatePassword(req.NewPassword) {
		return ErrWeakPassword
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasLocalPassword() || !utils.CheckPasswordHash(req.CurrentPassword, *user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("Password changed", zap.String("user_id", userID))
	return nil
}

// EmailAvailable reports whether the email is free to register
func (s *authService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	taken, err := s.users.EmailExists(ctx, utils.SanitizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return !taken, nil
}

// UsernameAvailable reports whether the username is free to register
func (s *authService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return !taken, nil
}

// A failed last-login stamp is logged only; it must never fail the login.
func (s *authService) stampLastLogin(ctx context.Context, user *domain.User) {
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Error("Failed to stamp last login", zap.String("user_id", user.ID), zap.Error(err))
	}
}
