package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lecture-qa/internal/contextutil"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheck tests one dependency. A nil error means it is usable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler runs every check concurrently on each request.
type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: healthCheckTimeout}
}

// HealthResponse lists the outcome per dependency.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// "healthy" or "unhealthy"
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	// Names of the failing checks.
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP reports dependency health.
//
// swagger:route GET /api/health healthCheck
//
// Checks the chunk database and the similarity index.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: every dependency answered
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: at least one dependency failed
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	logger := contextutil.LoggerFromContext(ctx)

	var (
		mu   sync.Mutex
		resp = HealthResponse{Status: "healthy", Checks: make(map[string]string, len(h.checks))}
	)
	var g errgroup.Group
	for _, c := range h.checks {
		g.Go(func() error {
			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.WarnContext(ctx, "health check failed", "check", c.Name, "error", err)
				resp.Checks[c.Name] = "error"
				resp.Issues = append(resp.Issues, c.Name)
				return nil
			}
			resp.Checks[c.Name] = "ok"
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	if len(resp.Issues) > 0 {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	writeJSON(r.Context(), w, status, resp)
}
