package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pool errors. Exhaustion and closure are expected conditions and are
// returned as typed outcomes, never panics.
var (
	// ErrPoolExhausted is returned when no connection becomes available
	// within the borrow timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrPoolClosed is returned by Borrow after Shutdown.
	ErrPoolClosed = errors.New("connection pool is closed")
)

const probeTimeout = 3 * time.Second

// Conn is the contract a pooled resource must satisfy.
type Conn interface {
	PingContext(ctx context.Context) error
	Close() error
}

// Factory dials a fresh connection.
type Factory[C Conn] func(ctx context.Context) (C, error)

// Pool owns a fixed-size set of live connections and lends them out one
// borrower at a time. Exclusive ownership between Borrow and Release is
// structural: a connection handed out over the channel cannot be received
// by a second borrower.
type Pool[C Conn] struct {
	idle          chan C
	factory       Factory[C]
	capacity      int
	borrowTimeout time.Duration
	logger        *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewPool eagerly dials capacity connections. It fails if any dial fails,
// closing whatever it already opened.
func NewPool[C Conn](ctx context.Context, factory Factory[C], capacity int, borrowTimeout time.Duration, logger *zap.Logger) (*Pool[C], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("pool capacity must be at least 1, got %d", capacity)
	}

	p := &Pool[C]{
		idle:          make(chan C, capacity),
		factory:       factory,
		capacity:      capacity,
		borrowTimeout: borrowTimeout,
		logger:        logger,
	}

	for i := 0; i < capacity; i++ {
		conn, err := factory(ctx)
		if err != nil {
			p.drain()
			return nil, fmt.Errorf("failed to pre-warm connection %d of %d: %w", i+1, capacity, err)
		}
		p.idle <- conn
	}

	logger.Info("Connection pool initialized", zap.Int("capacity", capacity))
	return p, nil
}

// Borrow hands out a connection, blocking until one is idle, the borrow
// timeout elapses, or ctx is done. A connection that fails its liveness
// probe is closed and transparently replaced before handout.
func (p *Pool[C]) Borrow(ctx context.Context) (C, error) {
	var zero C

	if p.isClosed() {
		return zero, ErrPoolClosed
	}

	timer := time.NewTimer(p.borrowTimeout)
	defer timer.Stop()

	select {
	case conn := <-p.idle:
		if p.healthy(conn) {
			return conn, nil
		}
		_ = conn.Close()
		fresh, err := p.factory(ctx)
		if err != nil {
			p.logger.Error("Failed to replace dead connection", zap.Error(err))
			return zero, fmt.Errorf("failed to replace dead connection: %w", err)
		}
		return fresh, nil
	case <-timer.C:
		return zero, ErrPoolExhausted
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Release returns a connection to the pool. A connection that no longer
// answers a probe is discarded and a replacement dialed so capacity stays
// constant. After Shutdown, returns are accepted only to be discarded.
// Release never blocks on the pool itself.
func (p *Pool[C]) Release(conn C) {
	if !p.healthy(conn) {
		_ = conn.Close()
		fresh, err := p.factory(context.Background())
		if err != nil {
			p.logger.Error("Failed to replace broken connection", zap.Error(err))
			return
		}
		conn = fresh
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = conn.Close()
		return
	}

	select {
	case p.idle <- conn:
	default:
		// More returns than capacity means a foreign connection; drop it.
		_ = conn.Close()
	}
}

// Shutdown marks the pool closed and closes every idle connection. Borrowed
// connections are not interrupted; they are closed on Release.
func (p *Pool[C]) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.drain()
	p.logger.Info("Connection pool shut down")
}

// Available reports the number of idle connections, for health reporting.
func (p *Pool[C]) Available() int {
	return len(p.idle)
}

// Capacity reports the fixed pool size.
func (p *Pool[C]) Capacity() int {
	return p.capacity
}

func (p *Pool[C]) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool[C]) healthy(conn Conn) bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	return conn.PingContext(ctx) == nil
}

func (p *Pool[C]) drain() {
	for {
		select {
		case conn := <-p.idle:
			_ = conn.Close()
		default:
			return
		}
	}
}
