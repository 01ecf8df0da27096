package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"token-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// healthCheckTimeout bounds each dependency ping so one hung backend cannot
// stall the health check.
const healthCheckTimeout = 2 * time.Second

type dependencyStatus struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// HealthCheck handles GET /health. Dependencies are pinged concurrently and
// any failure reports the service as degraded with status 503.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps := pingAll(c.Request.Context(), checkers)

		status, code := "healthy", http.StatusOK
		for _, d := range deps {
			if d.Status != "healthy" {
				status, code = "degraded", http.StatusServiceUnavailable
				break
			}
		}

		c.JSON(code, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}

func pingAll(ctx context.Context, checkers []ports.HealthChecker) map[string]dependencyStatus {
	var (
		mu   sync.Mutex
		deps = make(map[string]dependencyStatus, len(checkers))
	)

	// Ping errors are reported per dependency, never returned to the group.
	var g errgroup.Group
	for _, checker := range checkers {
		checker := checker
		g.Go(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
			defer cancel()

			start := time.Now()
			err := checker.Ping(pingCtx)
			d := dependencyStatus{Status: "healthy", Latency: time.Since(start).String()}
			if err != nil {
				d.Status, d.Error = "unhealthy", err.Error()
			}

			mu.Lock()
			deps[checker.Name()] = d
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return deps
}
