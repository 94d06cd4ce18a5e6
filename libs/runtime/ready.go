package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

type readyReport struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

// NewBaseMuxWithReady returns a mux serving /healthz and /readyz. Checks with a
// nil func are skipped so optional dependencies can be passed unconditionally.
func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		report := readyReport{Status: "ok"}
		for _, check := range checks {
			if check.Check == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := check.Check(ctx)
			cancel()
			if err == nil {
				continue
			}
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			if report.Failures == nil {
				report.Failures = map[string]string{}
			}
			report.Failures[name] = err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		if len(report.Failures) > 0 {
			report.Status = "unavailable"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(report)
	})
	return mux
}
