package distance

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

const elementOK = "OK"

// Google asks the Distance Matrix API for driving distances with current traffic.
type Google struct {
	client  *maps.Client
	timeout time.Duration
}

// NewGoogle builds the client. baseURL is optional.
func NewGoogle(apiKey, baseURL string, timeout time.Duration) (*Google, error) {
	const op = "NewGoogle"

	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}

	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Google{client: client, timeout: timeout}, nil
}

func (g *Google) Name() string {
	return "google"
}

func (g *Google) Matrix(ctx context.Context, points []models.Coordinates) (models.Matrix, error) {
	const op = "Google.Matrix"

	n := len(points)
	m := models.NewMatrix(n)
	if n == 0 {
		return m, nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	locations := make([]string, n)
	for i, p := range points {
		locations[i] = p.String()
	}

	resp, err := g.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:       locations,
		Destinations:  locations,
		Mode:          maps.TravelModeDriving,
		DepartureTime: "now",
	})
	if err != nil {
		return models.Matrix{}, fmt.Errorf("%s: %w: %w", op, types.ErrMatrixUnavailable, err)
	}
	if len(resp.Rows) != n {
		return models.Matrix{}, fmt.Errorf("%s: %w: got %d rows for %d points", op, types.ErrMatrixUnavailable, len(resp.Rows), n)
	}

	for i, row := range resp.Rows {
		if len(row.Elements) != n {
			return models.Matrix{}, fmt.Errorf("%s: %w: row %d has %d elements", op, types.ErrMatrixUnavailable, i, len(row.Elements))
		}
		for j, el := range row.Elements {
			if i == j {
				continue
			}
			if el == nil || el.Status != elementOK {
				m.DistanceKm[i][j] = models.UnreachableSentinel
				m.DurationMin[i][j] = models.UnreachableSentinel
				continue
			}
			m.DistanceKm[i][j] = float64(el.Distance.Meters) / 1000
			m.DurationMin[i][j] = el.Duration.Minutes()
		}
	}

	return m, nil
}
