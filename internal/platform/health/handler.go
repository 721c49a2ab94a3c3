package health

import (
	"context"
	"net/http"
	"time"

	jsonResponse "vras/internal/transport/http/json"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Health(ctx context.Context) error
}

// Handler serves liveness/readiness probes. Nil checkers are skipped so the
// server stays healthy when optional backends (redis, postgres) are not
// configured.
type Handler struct {
	db    Checker
	redis Checker
}

func New(db, redis Checker) *Handler {
	return &Handler{db: db, redis: redis}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Health(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	message := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		message = "unhealthy"
	}
	jsonResponse.Write(w, status, message, checks)
}
