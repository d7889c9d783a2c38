package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/printbridge-backend/api/responses"
	"github.com/angelmondragon/printbridge-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/printbridge-backend/pkg/errors"
	"github.com/angelmondragon/printbridge-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

const envHeader = "X-PrintBridge-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and, when configured, redis. A nil pinger is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP Pinger, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		var errs error
		for _, dep := range []struct {
			name string
			p    Pinger
		}{{"database", dbP}, {"redis", redisP}} {
			if dep.p == nil {
				checks[dep.name] = "skipped"
				continue
			}
			if err := dep.p.Ping(ctx); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", dep.name, err))
				checks[dep.name] = "down"
				continue
			}
			checks[dep.name] = "up"
		}

		if errs != nil {
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", errs.Error()), "readiness check failed")
			}
			responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "dependency not ready").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
