package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/landing/internal/httpserver/deps"
)

type componentStatus struct {
	OK              bool   `json:"ok"`
	TemplatesLoaded *int   `json:"templates_loaded,omitempty"`
	LastReload      string `json:"last_reload,omitempty"`
	Mode            string `json:"mode,omitempty"`
	Impact          string `json:"impact,omitempty"`
	Error           string `json:"error,omitempty"`
}

type infraResponse struct {
	ServingMode string                     `json:"serving_mode"`
	Components  map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := make(map[string]componentStatus, len(d.Checks)+1)

		for _, c := range d.Checks {
			status := componentStatus{OK: true, Error: "none"}
			if !c.Critical {
				status.Mode = d.CacheMode
				status.Impact = "cache-enabled"
			}
			if err := ping(r.Context(), c.Pinger); err != nil {
				status.OK = false
				status.Error = "unreachable"
				if c.Critical {
					status.Impact = "curation-and-resolution-down"
				} else {
					status.Impact = "rendering-every-request"
				}
			}
			components[c.Name] = status
		}

		templates := componentStatus{OK: true, LastReload: "never"}
		if d.Templates != nil {
			count := d.Templates.Count()
			templates.TemplatesLoaded = &count
			templates.OK = count > 0
			if last := d.Templates.LastReload(); !last.IsZero() {
				templates.LastReload = last.UTC().Format("2006-01-02 15:04:05")
			}
		}
		components["templates"] = templates

		writeJSON(w, http.StatusOK, infraResponse{
			ServingMode: determineServingMode(d.Checks, components),
			Components:  components,
		})
	}
}

// determineServingMode is "critical" when a critical backend is down or no
// template is loaded, "degraded" when only the cache is down.
func determineServingMode(checks []deps.Check, components map[string]componentStatus) string {
	mode := "optimal"
	for _, c := range checks {
		if components[c.Name].OK {
			continue
		}
		if c.Critical {
			return "critical"
		}
		mode = "degraded"
	}
	if !components["templates"].OK {
		return "critical"
	}
	return mode
}
