package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/landing/internal/httpserver/deps"
	"github.com/MrSnakeDoc/landing/internal/logger"
)

const checkTimeout = 2 * time.Second

type readyzResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Readyz pings every configured backend. Only critical ones decide the
// status code.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := true
		checks := make(map[string]string, len(d.Checks))

		for _, c := range d.Checks {
			if err := ping(r.Context(), c.Pinger); err != nil {
				checks[c.Name] = "down"
				if c.Critical {
					ready = false
				}
				d.Logger.Warn("readiness check failed",
					logger.String("check", c.Name),
					logger.Bool("critical", c.Critical),
					logger.Error(err))
				continue
			}
			checks[c.Name] = "ok"
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: ready, Checks: checks})
	}
}

func ping(ctx context.Context, p deps.Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return p.Ping(ctx)
}
