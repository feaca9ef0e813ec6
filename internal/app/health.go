package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

// check probes Postgres through the connection pool so a fully wedged pool
// fails the health check instead of only a dead database.
func (h *HealthChecker) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		conn, err := h.infra.Pool().Borrow(ctx)
		if err != nil {
			errs <- err
			return
		}
		err = conn.PingContext(ctx)
		h.infra.Pool().Release(conn)
		errs <- err
	}()

	go func() {
		errs <- h.infra.Redis().Ping(ctx)
	}()

	return errors.Join(<-errs, <-errs)
}

func (h *HealthChecker) Handler(c *gin.Context) {
	pool := h.infra.Pool()

	if err := h.check(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"error":  err.Error(),
			"pool": gin.H{
				"available": pool.Available(),
				"capacity":  pool.Capacity(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
		"pool": gin.H{
			"available": pool.Available(),
			"capacity":  pool.Capacity(),
		},
	})
}
