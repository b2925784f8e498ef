package dto

import (
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/orchestrator"
)

type RunResponse struct {
	RunID           string  `json:"run_id"`
	Batches         int     `json:"batches"`
	Assignments     int     `json:"assignments"`
	RoutingFailures int     `json:"routing_failures"`
	Offers          int     `json:"offers"`
	DurationMs      float64 `json:"duration_ms"`
}

func NewRunResponse(s orchestrator.RunSummary) RunResponse {
	return RunResponse{
		RunID:           s.RunID,
		Batches:         s.Batches,
		Assignments:     s.Assignments,
		RoutingFailures: s.RoutingFailures,
		Offers:          s.Offers,
		DurationMs:      float64(s.Duration.Microseconds()) / 1000,
	}
}

// OffersResponse documents the body of the offer listing endpoints.
type OffersResponse struct {
	Count  int                 `json:"count"`
	Offers []models.AdminOffer `json:"offers"`
}

func NewAdminOffers(offers []*models.TripOffer) []models.AdminOffer {
	out := make([]models.AdminOffer, 0, len(offers))
	for _, o := range offers {
		out = append(out, models.NewAdminOffer(o))
	}
	return out
}

type OrderReadyResponse struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}
