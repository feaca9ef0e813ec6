// Package oauth drives the three-legged federated login against Google:
// authorization redirect, anti-forgery state, server-to-server code
// exchange, profile fetch, and the linking of provider accounts to local
// identities.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/chatterbox-app/auth-service/internal/domain"
	"github.com/chatterbox-app/auth-service/internal/repository"
)

// Broker errors. Callers see these; the provider's actual response detail
// is logged server-side only.
var (
	// ErrInvalidState is returned for unknown, expired, or already
	// consumed states alike.
	ErrInvalidState = errors.New("invalid or expired authorization state")

	// ErrExchangeFailed is returned when the provider rejects the
	// authorization code.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrProfileFetchFailed is returned when the provider profile cannot
	// be retrieved.
	ErrProfileFetchFailed = errors.New("profile fetch failed")
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

	// stateTTL bounds how long a login attempt may sit between redirect
	// and callback.
	stateTTL = 10 * time.Minute

	// requestTimeout bounds each provider call so a slow provider cannot
	// stall callers indefinitely.
	requestTimeout = 10 * time.Second

	maxUsernameBase = 20
)

// Config parameterizes the broker. The endpoint URLs default to Google's
// and are only overridden in tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserinfoURL string
}

// Profile is the verified attribute set fetched from the provider.
type Profile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Broker runs federated login attempts. It is safe for concurrent use; the
// only shared mutable state is the state store, which synchronizes itself.
type Broker struct {
	conf        *oauth2.Config
	userinfoURL string
	states      *stateStore
	users       repository.UserRepository
	client      *http.Client
	logger      *zap.Logger
}

// NewBroker creates an identity broker over the given user repository.
func NewBroker(cfg Config, users repository.UserRepository, logger *zap.Logger) *Broker {
	if cfg.AuthURL == "" {
		cfg.AuthURL = googleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = googleTokenURL
	}
	if cfg.UserinfoURL == "" {
		cfg.UserinfoURL = googleUserinfoURL
	}

	return &Broker{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userinfoURL: cfg.UserinfoURL,
		states:      newStateStore(stateTTL),
		users:       users,
		client:      &http.Client{Timeout: requestTimeout},
		logger:      logger,
	}
}

// BeginAuthorization starts a login attempt: it issues an anti-forgery
// state and returns the provider authorization URL to redirect the user to.
func (b *Broker) BeginAuthorization() (redirectURL, state string, err error) {
	state, err = b.states.Issue()
	if err != nil {
		return "", "", err
	}

	redirectURL = b.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return redirectURL, state, nil
}

// CompleteAuthorization finishes a login attempt: it consumes the state,
// exchanges the code for a provider access token, fetches the profile, and
// resolves it to a local user.
func (b *Broker) CompleteAuthorization(ctx context.Context, code, state string) (*domain.User, error) {
	if !b.states.Consume(state) {
		return nil, ErrInvalidState
	}

	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	callCtx = context.WithValue(callCtx, oauth2.HTTPClient, b.client)

	providerToken, err := b.conf.Exchange(callCtx, code)
	if err != nil {
		b.logger.Error("OAuth code exchange failed", zap.Error(err))
		return nil, ErrExchangeFailed
	}

	profile, err := b.fetchProfile(callCtx, providerToken.AccessToken)
	if err != nil {
		b.logger.Error("OAuth profile fetch failed", zap.Error(err))
		return nil, ErrProfileFetchFailed
	}

	return b.resolveUser(ctx, profile)
}

func (b *Broker) fetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if profile.Subject == "" || profile.Email == "" {
		return nil, fmt.Errorf("userinfo response missing subject or email")
	}

	return &profile, nil
}

// resolveUser applies the linking policy in order: already linked provider
// account, then verified-email match, then a brand new identity.
func (b *Broker) resolveUser(ctx context.Context, profile *Profile) (*domain.User, error) {
	user, err := b.users.GetByProviderID(ctx, profile.Subject)
	if err == nil {
		b.stampLastLogin(ctx, user)
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up provider account: %w", err)
	}

	if profile.EmailVerified {
		user, err = b.users.GetByEmail(ctx, profile.Email)
		if err == nil {
			avatar := optional(profile.Picture)
			if err := b.users.LinkProvider(ctx, user.ID, profile.Subject, avatar); err != nil {
				return nil, fmt.Errorf("failed to link provider account: %w", err)
			}
			user.ProviderID = &profile.Subject
			if user.AvatarURL == nil {
				user.AvatarURL = avatar
			}
			user.EmailVerified = true
			b.logger.Info("Linked provider account to existing user",
				zap.String("user_id", user.ID),
				zap.String("email", user.Email),
			)
			b.stampLastLogin(ctx, user)
			return user, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user by email: %w", err)
		}
	}

	username, err := b.generateUsername(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	displayName := profile.Name
	if displayName == "" {
		displayName = username
	}

	user = &domain.User{
		Email:         profile.Email,
		Username:      username,
		DisplayName:   displayName,
		AvatarURL:     optional(profile.Picture),
		AuthProvider:  domain.ProviderGoogle,
		ProviderID:    &profile.Subject,
		IsActive:      true,
		EmailVerified: profile.EmailVerified,
	}

	if err := b.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create federated user: %w", err)
	}

	b.logger.Info("Created new federated user",
		zap.String("user_id", user.ID),
		zap.String("username", username),
	)
	return user, nil
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// generateUsername derives a username from the email's local part and
// disambiguates with an increasing numeric suffix until unique.
func (b *Broker) generateUsername(ctx context.Context, email string) (string, error) {
	base := nonAlphanumeric.ReplaceAllString(strings.SplitN(email, "@", 2)[0], "")
	if len(base) > maxUsernameBase {
		base = base[:maxUsernameBase]
	}
	if base == "" {
		base = "user"
	}

	candidate := base
	for suffix := 1; ; suffix++ {
		taken, err := b.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check username availability: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, suffix)
	}
}

// A failed last-login stamp is non-critical and must not fail the login.
func (b *Broker) stampLastLogin(ctx context.Context, user *domain.User) {
	if err := b.users.UpdateLastLogin(ctx, user.ID); err != nil {
		b.logger.Error("Failed to stamp last login", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
