package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Postgres represents a PostgreSQL database handle. It hands out dedicated
// connections for the pool; nothing else queries through it directly.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres opens a PostgreSQL handle capped at poolSize concurrent
// connections, so the pool above it is the only thing deciding how many
// sockets the process holds.
func NewPostgres(dsn string, poolSize int) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{DB: db}, nil
}

// Dial is the pool factory: it pins a dedicated connection.
func (p *Postgres) Dial(ctx context.Context) (*PgConn, error) {
	conn, err := p.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &PgConn{conn: conn}, nil
}

// Close closes the database handle
func (p *Postgres) Close() error {
	return p.DB.Close()
}

// Ping checks if the database is available
func (p *Postgres) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

// PgConn is a single pinned PostgreSQL connection leased out by the pool.
// It is owned by exactly one caller between Borrow and Release.
type PgConn struct {
	conn *sql.Conn
}

func (c *PgConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

func (c *PgConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c *PgConn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

// PingContext is the liveness probe the pool runs before handing the
// connection out and when it comes back.
func (c *PgConn) PingContext(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

func (c *PgConn) Close() error {
	return c.conn.Close()
}
