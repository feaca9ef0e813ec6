package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/chatterbox-app/auth-service/internal/config"
	"github.com/chatterbox-app/auth-service/internal/handler"
	"github.com/chatterbox-app/auth-service/internal/oauth"
	"github.com/chatterbox-app/auth-service/internal/repository"
	"github.com/chatterbox-app/auth-service/internal/service"
	"github.com/chatterbox-app/auth-service/internal/token"
	"github.com/chatterbox-app/auth-service/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	users := repository.NewUserRepository(infra.Pool())

	tokenService, err := buildTokenService(cfg, infra.Logger())
	if err != nil {
		return nil, err
	}

	var broker service.IdentityBroker
	if cfg.Google.Configured() {
		broker = oauth.NewBroker(oauth.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURI,
		}, users, infra.Logger())
	} else {
		infra.Logger().Info("Federated login disabled: no Google client configured")
	}

	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	authService := service.NewAuthService(
		users,
		tokenService,
		broker,
		cfg.Security.BCryptCost,
		infra.Logger(),
	)

	authHandler := handler.NewAuthHandler(authService)

	router := gin.Default()
	router.Use(otelgin.Middleware("auth-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, authHandler, authService, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

// buildTokenService resolves the process-wide token secret. Without a
// configured one, a random secret is generated: tokens then survive only
// as long as the process does.
func buildTokenService(cfg *config.Config, logger *zap.Logger) (*token.Service, error) {
	secret := []byte(cfg.JWT.Secret)
	if len(secret) == 0 {
		generated, err := token.GenerateSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
		logger.Info("Generated ephemeral token secret; outstanding tokens will not survive a restart")
	}

	return token.NewService(secret, cfg.JWT.AccessTokenExpiry.Duration, cfg.JWT.RefreshTokenExpiry.Duration), nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	authService service.AuthService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			limited := handler.RateLimitMiddleware(
				rateLimiter,
				cfg.Security.RateLimitRequests,
				cfg.Security.RateLimitWindow.Duration,
				handler.IPBasedKey,
			)

			auth.POST("/register", limited, authHandler.Register)
			auth.POST("/login", limited, authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)

			auth.GET("/google", authHandler.GoogleStart)
			auth.GET("/google/callback", authHandler.GoogleCallback)

			auth.GET("/check-email", authHandler.CheckEmail)
			auth.GET("/check-username", authHandler.CheckUsername)

			auth.GET("/me", handler.AuthMiddleware(authService), authHandler.GetMe)
			auth.PUT("/me", handler.AuthMiddleware(authService), authHandler.UpdateMe)
			auth.POST("/password", handler.AuthMiddleware(authService), authHandler.ChangePassword)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
