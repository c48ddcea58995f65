package controllers

import (
	"context"
	"net/http"

	"github.com/adityamehra-dev/orderbook-backend/api/responses"
	"github.com/adityamehra-dev/orderbook-backend/pkg/config"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
	"github.com/adityamehra-dev/orderbook-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

// HealthLive reports process liveness without touching dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Orderbook-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the backing stores and reports per-dependency state.
// Nil pingers are skipped so optional dependencies do not fail readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPing, redisPing, blobPing pinger) http.HandlerFunc {
	checks := []struct {
		name string
		ping pinger
	}{
		{"database", dbPing},
		{"redis", redisPing},
		{"blob_store", blobPing},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Orderbook-Env", cfg.App.Env)

		statuses := map[string]string{}
		failed := false
		for _, check := range checks {
			if check.ping == nil {
				continue
			}
			if err := check.ping.Ping(r.Context()); err != nil {
				failed = true
				statuses[check.name] = "unavailable"
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", check.name), "health.dependency_failed", err)
				}
				continue
			}
			statuses[check.name] = "ok"
		}

		if failed {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(statuses)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"status":       "ready",
			"dependencies": statuses,
		})
	}
}
