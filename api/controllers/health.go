package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/bakery-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

const readyProbeTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type ReadyStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func HealthLive(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Bakery-Env", env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady fails only when the database is unreachable. A Redis outage is
// reported as degraded because carts fall back to process memory.
func HealthReady(env string, database, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Bakery-Env", env)
		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		status := ReadyStatus{Status: "ready", Checks: map[string]string{}}
		if database == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not configured"))
			return
		}
		if err := database.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
			return
		}
		status.Checks["database"] = "ok"

		switch {
		case cache == nil:
			status.Checks["redis"] = "disabled"
		default:
			if err := cache.Ping(ctx); err != nil {
				status.Status = "degraded"
				status.Checks["redis"] = "unreachable"
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "health.redis.unreachable")
				}
			} else {
				status.Checks["redis"] = "ok"
			}
		}
		responses.WriteSuccess(w, status)
	}
}
