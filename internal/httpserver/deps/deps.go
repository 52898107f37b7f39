package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/landing/internal/landing"
	"github.com/MrSnakeDoc/landing/internal/logger"
	"github.com/MrSnakeDoc/landing/internal/metrics"
	"github.com/MrSnakeDoc/landing/internal/preview"
	"github.com/MrSnakeDoc/landing/internal/templates"
)

// Pinger is implemented by every backend readyz/infra can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one backend probed by readyz. A failing critical check makes
// the service unready; a failing non-critical one only shows in /infra.
type Check struct {
	Name     string
	Pinger   Pinger
	Critical bool
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed on the curation API
	AllowedCIDRS []string         // IPs allowed on readyz/infra/reload/metrics
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Landing   *landing.Service    // landing page lifecycle and resolution
	Previews  *preview.Manager    // session-scoped unsaved previews
	Templates *templates.Registry // current template registry
	Metrics   *metrics.Metrics    // nil disables /metrics

	Checks    []Check // backends probed by readyz and infra
	CacheMode string  // "redis" or "memory"

	ReloadTrigger chan struct{} // Channel to trigger manual template reload

	PublicRateBurst     int // token bucket size per client IP on public routes
	PublicRatePerMinute int // refill per client IP
}
