package service

import (
	"fmt"
	"time"

	"github.com/chatterbox-app/auth-service/internal/domain"
	"github.com/chatterbox-app/auth-service/internal/dto"
)

// AuthResult bundles the body of an auth response with the refresh token,
// which the transport layer delivers separately (an httpOnly cookie).
type AuthResult struct {
	AuthResponse     *dto.AuthResponse
	RefreshToken     string
	RefreshExpiresIn int
}

// issueTokens mints the access/refresh pair for a user.
func (s *authService) issueTokens(user *domain.User) (*AuthResult, error) {
	accessToken, err := s.tokens.MintAccess(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	refreshToken, err := s.tokens.MintRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint refresh token: %w", err)
	}

	return &AuthResult{
		AuthResponse: &dto.AuthResponse{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   s.tokens.AccessExpirySeconds(),
			User: dto.UserInfo{
				ID:          user.ID,
				Email:       user.Email,
				Username:    user.Username,
				DisplayName: user.DisplayName,
				AvatarURL:   user.AvatarURL,
				IsAdmin:     user.IsAdmin,
			},
		},
		RefreshToken:     refreshToken,
		RefreshExpiresIn: s.tokens.RefreshExpirySeconds(),
	}, nil
}

func userResponse(user *domain.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Username:      user.Username,
		DisplayName:   user.DisplayName,
		AvatarURL:     user.AvatarURL,
		AuthProvider:  user.AuthProvider,
		IsAdmin:       user.IsAdmin,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     user.UpdatedAt.Format(time.RFC3339),
	}

	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &lastLogin
	}

	return resp
}
