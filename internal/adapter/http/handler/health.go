package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency. Critical failures turn the whole service unavailable.
type HealthCheck struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

type Health struct {
	serviceName string
	checks      []HealthCheck
	log         logger.Logger
}

func NewHealth(serviceName string, log logger.Logger, checks ...HealthCheck) *Health {
	return &Health{
		serviceName: serviceName,
		checks:      checks,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Returns the health status of the service and its dependencies
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      503  {object}  map[string]any
// @Router       /health [get]
func (a *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	status, code := "available", http.StatusOK
	dependencies := make(map[string]string, len(a.checks))
	for _, c := range a.checks {
		if err := c.Probe(probeCtx); err != nil {
			dependencies[c.Name] = "down: " + err.Error()
			if c.Critical {
				status, code = "unavailable", http.StatusServiceUnavailable
			} else if code == http.StatusOK {
				status = "degraded"
			}
			continue
		}
		dependencies[c.Name] = "up"
	}

	response := envelope{
		"status":       status,
		"dependencies": dependencies,
		"system_info": map[string]string{
			"service-name": a.serviceName,
		},
	}

	if err := writeJSON(w, code, response, nil); err != nil {
		a.log.Error(ctx, "healthcheck", err)
		return
	}
}
