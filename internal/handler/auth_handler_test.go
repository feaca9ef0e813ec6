package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatterbox-app/auth-service/internal/domain"
	"github.com/chatterbox-app/auth-service/internal/dto"
	"github.com/chatterbox-app/auth-service/internal/oauth"
	"github.com/chatterbox-app/auth-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAuthService lets each test script the gateway's behavior.
type stubAuthService struct {
	registerFn      func(*dto.RegisterRequest) (*service.AuthResult, error)
	loginFn         func(*dto.LoginRequest) (*service.AuthResult, error)
	refreshFn       func(string) (*dto.RefreshResponse, error)
	resolveFn       func(string) *domain.User
	beginOAuthFn    func() (string, error)
	completeOAuthFn func(code, state string) (*service.AuthResult, error)
	emailFreeFn     func(string) (bool, error)
	usernameFreeFn  func(string) (bool, error)
}

func (s *stubAuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*service.AuthResult, error) {
	return s.registerFn(req)
}

func (s *stubAuthService) Login(ctx context.Context, req *dto.LoginRequest) (*service.AuthResult, error) {
	return s.loginFn(req)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error) {
	return s.refreshFn(refreshToken)
}

func (s *stubAuthService) Resolve(ctx context.Context, rawCredential string) *domain.User {
	if s.resolveFn == nil {
		return nil
	}
	return s.resolveFn(rawCredential)
}

func (s *stubAuthService) BeginOAuth() (string, error) {
	return s.beginOAuthFn()
}

func (s *stubAuthService) CompleteOAuth(ctx context.Context, code, state string) (*service.AuthResult, error) {
	return s.completeOAuthFn(code, state)
}

func (s *stubAuthService) GetUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	return &dto.UserResponse{ID: userID, Username: "alice"}, nil
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) error {
	return nil
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	return nil
}

func (s *stubAuthService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	return s.emailFreeFn(email)
}

func (s *stubAuthService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	return s.usernameFreeFn(username)
}

func sampleResult() *service.AuthResult {
	return &service.AuthResult{
		AuthResponse: &dto.AuthResponse{
			AccessToken: "access-token",
			TokenType:   "Bearer",
			ExpiresIn:   900,
			User:        dto.UserInfo{ID: "user-1", Email: "alice@example.com", Username: "alice"},
		},
		RefreshToken:     "refresh-token",
		RefreshExpiresIn: 604800,
	}
}

func newRouter(stub *stubAuthService) *gin.Engine {
	h := NewAuthHandler(stub)

	router := gin.New()
	auth := router.Group("/api/v1/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)
	auth.GET("/google", h.GoogleStart)
	auth.GET("/google/callback", h.GoogleCallback)
	auth.GET("/check-email", h.CheckEmail)
	auth.GET("/check-username", h.CheckUsername)
	auth.GET("/me", AuthMiddleware(stub), h.GetMe)
	return router
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterEndpoint_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(req *dto.RegisterRequest) (*service.AuthResult, error) {
			return sampleResult(), nil
		},
	}
	router := newRouter(stub)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/register",
		`{"email":"alice@example.com","username":"alice","password":"password1"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)

	cookie := findCookie(w, refreshCookieName)
	require.NotNil(t, cookie, "refresh cookie must be set")
	assert.Equal(t, "refresh-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, refreshCookiePath, cookie.Path)
}

func TestRegisterEndpoint_Conflict(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(req *dto.RegisterRequest) (*service.AuthResult, error) {
			return nil, service.ErrEmailTaken
		},
	}
	router := newRouter(stub)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/register",
		`{"email":"alice@example.com","username":"alice","password":"password1"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterEndpoint_ValidationError(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(req *dto.RegisterRequest) (*service.AuthResult, error) {
			return nil, service.ErrWeakPassword
		},
	}
	router := newRouter(stub)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/register",
		`{"email":"alice@example.com","username":"alice","password":"password1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Binding failures never reach the service.
	w = doJSON(router, http.MethodPost, "/api/v1/auth/register", `{"email":"not-json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginEndpoint(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"inactive account", service.ErrAccountInactive, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAuthService{
				loginFn: func(req *dto.LoginRequest) (*service.AuthResult, error) {
					if tc.err != nil {
						return nil, tc.err
					}
					return sampleResult(), nil
				},
			}
			router := newRouter(stub)

			w := doJSON(router, http.MethodPost, "/api/v1/auth/login",
				`{"identifier":"alice","password":"password1"}`)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRefreshEndpoint_FromCookie(t *testing.T) {
	var seen string
	stub := &stubAuthService{
		refreshFn: func(token string) (*dto.RefreshResponse, error) {
			seen = token
			return &dto.RefreshResponse{AccessToken: "new-access", TokenType: "Bearer", ExpiresIn: 900}, nil
		},
	}
	router := newRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "cookie-refresh-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cookie-refresh-token", seen)
}

func TestRefreshEndpoint_FromBody(t *testing.T) {
	var seen string
	stub := &stubAuthService{
		refreshFn: func(token string) (*dto.RefreshResponse, error) {
			seen = token
			return &dto.RefreshResponse{AccessToken: "new-access", TokenType: "Bearer", ExpiresIn: 900}, nil
		},
	}
	router := newRouter(stub)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"body-refresh-token"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "body-refresh-token", seen)
}

func TestRefreshEndpoint_Missing(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(token string) (*dto.RefreshResponse, error) {
			t.Fatal("service must not be called without a token")
			return nil, nil
		},
	}
	router := newRouter(stub)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshEndpoint_InvalidToken(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(token string) (*dto.RefreshResponse, error) {
			return nil, service.ErrInvalidToken
		},
	}
	router := newRouter(stub)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"stale"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutEndpoint_ClearsCookie(t *testing.T) {
	router := newRouter(&stubAuthService{})

	w := doJSON(router, http.MethodPost, "/api/v1/auth/logout", "")

	require.Equal(t, http.StatusOK, w.Code)
	cookie := findCookie(w, refreshCookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestAuthMiddleware(t *testing.T) {
	stub := &stubAuthService{
		resolveFn: func(raw string) *domain.User {
			if raw == "Bearer valid-token" {
				return &domain.User{ID: "user-1", Username: "alice", IsActive: true}
			}
			return nil
		},
	}
	router := newRouter(stub)

	// No credential.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage credential.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid credential in the header.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.ID)
}

func TestGoogleStartEndpoint(t *testing.T) {
	stub := &stubAuthService{
		beginOAuthFn: func() (string, error) {
			return "https://accounts.google.com/o/oauth2/v2/auth?state=abc", nil
		},
	}
	router := newRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "accounts.google.com")
}

func TestGoogleStartEndpoint_NotConfigured(t *testing.T) {
	stub := &stubAuthService{
		beginOAuthFn: func() (string, error) {
			return "", service.ErrOAuthNotConfigured
		},
	}
	router := newRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestGoogleCallbackEndpoint(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{"success", "?code=abc&state=xyz", nil, http.StatusOK},
		{"provider error", "?error=access_denied", nil, http.StatusUnauthorized},
		{"missing params", "?code=abc", nil, http.StatusBadRequest},
		{"forged state", "?code=abc&state=bad", oauth.ErrInvalidState, http.StatusUnauthorized},
		{"exchange failure", "?code=abc&state=xyz", oauth.ErrExchangeFailed, http.StatusBadGateway},
		{"inactive account", "?code=abc&state=xyz", service.ErrAccountInactive, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAuthService{
				completeOAuthFn: func(code, state string) (*service.AuthResult, error) {
					if tc.err != nil {
						return nil, tc.err
					}
					return sampleResult(), nil
				},
			}
			router := newRouter(stub)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback"+tc.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestCheckEmailEndpoint(t *testing.T) {
	stub := &stubAuthService{
		emailFreeFn: func(email string) (bool, error) {
			return email != "taken@example.com", nil
		},
	}
	router := newRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/check-email?email=free@example.com", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.AvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Available)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/check-email?email=taken@example.com", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Available)

	// Missing parameter.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/check-email", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckUsernameEndpoint(t *testing.T) {
	stub := &stubAuthService{
		usernameFreeFn: func(username string) (bool, error) {
			return username != "alice", nil
		},
	}
	router := newRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/check-username?username=alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.AvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
}
