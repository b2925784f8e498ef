package distance

import (
	"context"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

// Fallback answers from secondary whenever primary fails.
type Fallback struct {
	primary   Provider
	secondary Provider
	log       logger.Logger
}

func NewFallback(primary, secondary Provider, log logger.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, log: log}
}

func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *Fallback) Matrix(ctx context.Context, points []models.Coordinates) (models.Matrix, error) {
	m, err := f.primary.Matrix(ctx, points)
	if err == nil {
		return m, nil
	}

	f.log.Warn(wrap.WithAction(ctx, types.ActionExternalServiceFailed), "distance provider failed, using fallback",
		"provider", f.primary.Name(), "fallback", f.secondary.Name(), "error", err.Error())

	return f.secondary.Matrix(ctx, points)
}
