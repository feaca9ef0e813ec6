package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/chatterbox-app/auth-service/internal/domain"
	"github.com/chatterbox-app/auth-service/pkg/database"
)

// Pool is the bounded connection pool the repository draws from.
type Pool = database.Pool[*database.PgConn]

// userRepository implements UserRepository on top of the connection pool
type userRepository struct {
	pool *Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, email, username, password_hash, display_name, avatar_url,
	auth_provider, provider_id, is_active, is_admin, email_verified,
	created_at, updated_at, last_login_at`

// withConn borrows a connection for exactly one operation. The deferred
// release runs on every exit path, so a failed query cannot leak a lease.
func (r *userRepository) withConn(ctx context.Context, fn func(conn *database.PgConn) error) error {
	conn, err := r.pool.Borrow(ctx)
	if err != nil {
		return fmt.Errorf("failed to borrow connection: %w", err)
	}
	defer r.pool.Release(conn)

	return fn(conn)
}

// Create inserts a new user. The id and timestamps are filled in when the
// caller left them empty.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if !user.HasLocalPassword() && !user.HasProvider() {
		return ErrNoAuthMethod
	}

	query := `
		INSERT INTO users (id, email, username, password_hash, display_name, avatar_url,
			auth_provider, provider_id, is_active, is_admin, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	return r.withConn(ctx, func(conn *database.PgConn) error {
		_, err := conn.ExecContext(ctx, query,
			user.ID,
			user.Email,
			user.Username,
			user.PasswordHash,
			user.DisplayName,
			user.AvatarURL,
			user.AuthProvider,
			user.ProviderID,
			user.IsActive,
			user.IsAdmin,
			user.EmailVerified,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			if dup := mapUniqueViolation(err); dup != nil {
				return dup
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return r.getOne(ctx, query, strings.TrimSpace(email))
}

// GetByLogin retrieves a user by email or username
func (r *userRepository) GetByLogin(ctx context.Context, identifier string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) OR username = $1`
	return r.getOne(ctx, query, strings.TrimSpace(identifier))
}

// GetByProviderID retrieves a user by linked external provider account
func (r *userRepository) GetByProviderID(ctx context.Context, providerID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider_id = $1`
	return r.getOne(ctx, query, providerID)
}

// EmailExists reports whether the email is already registered
func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, strings.TrimSpace(email))
}

// UsernameExists reports whether the username is already taken
func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

// LinkProvider attaches an external provider account to an existing user
// and marks the email verified. An existing avatar is not overwritten.
func (r *userRepository) LinkProvider(ctx context.Context, userID, providerID string, avatarURL *string) error {
	query := `
		UPDATE users
		SET provider_id = $2, avatar_url = COALESCE(avatar_url, $3), email_verified = true, updated_at = now()
		WHERE id = $1
	`

	return r.withConn(ctx, func(conn *database.PgConn) error {
		result, err := conn.ExecContext(ctx, query, userID, providerID, avatarURL)
		if err != nil {
			if dup := mapUniqueViolation(err); dup != nil {
				return dup
			}
			return fmt.Errorf("failed to link provider: %w", err)
		}
		return requireRow(result, userID)
	})
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	query := `UPDATE users SET last_login_at = now() WHERE id = $1`

	return r.withConn(ctx, func(conn *database.PgConn) error {
		result, err := conn.ExecContext(ctx, query, userID)
		if err != nil {
			return fmt.Errorf("failed to update last login: %w", err)
		}
		return requireRow(result, userID)
	})
}

// UpdateProfile updates display name and avatar
func (r *userRepository) UpdateProfile(ctx context.Context, userID, displayName string, avatarURL *string) error {
	query := `UPDATE users SET display_name = $2, avatar_url = $3, updated_at = now() WHERE id = $1`

	return r.withConn(ctx, func(conn *database.PgConn) error {
		result, err := conn.ExecContext(ctx, query, userID, displayName, avatarURL)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		return requireRow(result, userID)
	})
}

// UpdatePassword replaces the stored password hash
func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	return r.withConn(ctx, func(conn *database.PgConn) error {
		result, err := conn.ExecContext(ctx, query, userID, passwordHash)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return requireRow(result, userID)
	})
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user := &domain.User{}

	err := r.withConn(ctx, func(conn *database.PgConn) error {
		var (
			passwordHash sql.NullString
			avatarURL    sql.NullString
			providerID   sql.NullString
			lastLoginAt  sql.NullTime
		)

		err := conn.QueryRowContext(ctx, query, arg).Scan(
			&user.ID,
			&user.Email,
			&user.Username,
			&passwordHash,
			&user.DisplayName,
			&avatarURL,
			&user.AuthProvider,
			&providerID,
			&user.IsActive,
			&user.IsAdmin,
			&user.EmailVerified,
			&user.CreatedAt,
			&user.UpdatedAt,
			&lastLoginAt,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to query user: %w", err)
		}

		if passwordHash.Valid {
			user.PasswordHash = &passwordHash.String
		}
		if avatarURL.Valid {
			user.AvatarURL = &avatarURL.String
		}
		if providerID.Valid {
			user.ProviderID = &providerID.String
		}
		if lastLoginAt.Valid {
			user.LastLoginAt = &lastLoginAt.Time
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var exists bool

	err := r.withConn(ctx, func(conn *database.PgConn) error {
		if err := conn.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check existence: %w", err)
		}
		return nil
	})

	return exists, err
}

// mapUniqueViolation translates a unique_violation into the matching typed
// conflict, keyed by the constraint the insert tripped over.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}

	switch pqErr.Constraint {
	case "users_email_key":
		return ErrDuplicateEmail
	case "users_username_key":
		return ErrDuplicateUsername
	case "users_provider_id_key":
		return ErrDuplicateProvider
	default:
		return fmt.Errorf("unique violation on %s: %w", pqErr.Constraint, err)
	}
}

func requireRow(result sql.Result, userID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}
