package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Google   GoogleConfig   `env:",prefix=GOOGLE_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host          string   `env:"HOST,default=localhost"`
	Port          string   `env:"PORT,default=5432"`
	User          string   `env:"USER,default=chatterbox"`
	Password      string   `env:"PASSWORD,default=chatterbox_password"`
	DBName        string   `env:"DB,default=chatterbox_auth"`
	SSLMode       string   `env:"SSLMODE,default=disable"`
	PoolSize      int      `env:"POOL_SIZE,default=10"`
	BorrowTimeout Duration `env:"POOL_BORROW_TIMEOUT,default=5s"`
	MigrationsDir string   `env:"MIGRATIONS_DIR,default=migrations"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// JWTConfig carries the token signing settings. Secret may be left empty,
// in which case the process generates a random one at startup and every
// token issued before the restart becomes invalid.
type JWTConfig struct {
	Secret             string   `env:"SECRET"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
}

// GoogleConfig carries the federated login client settings. Google login is
// disabled when the client id or secret is missing.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI,default=http://localhost:8080/api/v1/auth/google/callback"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Configured reports whether federated login can be offered.
func (g GoogleConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// An explicitly configured secret must be long enough to resist brute force.
	if config.JWT.Secret != "" && len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if config.Postgres.PoolSize < 1 {
		return nil, fmt.Errorf("POSTGRES_POOL_SIZE must be at least 1")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
