package distance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-dispatch/pkg/metrics"
)

type ResilienceConfig struct {
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32        // consecutive failures that open the breaker
	BreakerTimeout    time.Duration // time spent open before a trial request
}

// Resilient puts a client-side rate limit and a circuit breaker in front of a provider.
type Resilient struct {
	next    Provider
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     logger.Logger
}

func NewResilient(next Provider, cfg ResilienceConfig, log logger.Logger) *Resilient {
	ctx := wrap.WithAction(context.Background(), types.ActionExternalServiceFailed)

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(ctx, "distance provider circuit breaker state changed",
				"provider", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Resilient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

func (r *Resilient) Name() string {
	return r.next.Name()
}

func (r *Resilient) Matrix(ctx context.Context, points []models.Coordinates) (m models.Matrix, err error) {
	const op = "Resilient.Matrix"
	defer func() { metrics.RecordDistanceRequest(r.next.Name(), err) }()

	if err := r.limiter.Wait(ctx); err != nil {
		return models.Matrix{}, fmt.Errorf("%s: %w: rate limit: %w", op, types.ErrMatrixUnavailable, err)
	}

	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.Matrix(ctx, points)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return models.Matrix{}, fmt.Errorf("%s: %w: %w", op, types.ErrMatrixUnavailable, err)
		}
		return models.Matrix{}, fmt.Errorf("%s: %w", op, err)
	}

	return res.(models.Matrix), nil
}

// State reports the breaker state, for health output.
func (r *Resilient) State() string {
	return r.breaker.State().String()
}
