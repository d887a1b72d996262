package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/floramarket/florabot/internal/health"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes implements HealthChecker on top of the component health checker.
type Probes struct {
	checker *health.Checker
	log     *slog.Logger
}

// NewProbes creates probes backed by the given checker.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, log: log}
}

// Liveness reports success as long as the process is responsive.
func (p *Probes) Liveness(context.Context) error {
	return nil
}

// Readiness fails when any registered component check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.checker == nil {
		return nil
	}

	for name, status := range p.checker.Check(ctx) {
		if status != "OK" {
			return fmt.Errorf("component %s not ready: %s", name, status)
		}
	}
	return nil
}

// LivenessHandler serves the liveness probe over HTTP.
func (p *Probes) LivenessHandler() http.HandlerFunc {
	return p.probeHandler(p.Liveness)
}

// ReadinessHandler serves the readiness probe over HTTP.
func (p *Probes) ReadinessHandler() http.HandlerFunc {
	return p.probeHandler(p.Readiness)
}

func (p *Probes) probeHandler(probe func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := probe(r.Context()); err != nil {
			p.log.Warn("probe failed", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
