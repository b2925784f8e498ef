package models

import "time"

// TripOffer is a time-boxed proposal of a batch and its route sent to one driver.
// Internal is never serialized to the driver.
type TripOffer struct {
	OfferID    string          `json:"offer_id"`
	DriverID   int64           `json:"driver_id"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	Restaurant Restaurant      `json:"restaurant"`
	Stops      []TripOfferStop `json:"stops"`
	Summary    OfferSummary    `json:"summary"`
	Internal   OfferInternal   `json:"-"`
}

// TripOfferStop is the driver facing stop: zone and cumulative ETA, no exact address.
type TripOfferStop struct {
	Sequence        int    `json:"sequence"`
	ApproximateZone string `json:"approximate_zone"`
	EtaMinutes      int    `json:"eta_minutes"`
}

type OfferSummary struct {
	TotalOrders          int     `json:"total_orders"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	EstimatedTimeMinutes int     `json:"estimated_time_minutes"`
	EstimatedEarnings    float64 `json:"estimated_earnings"`
}

// OfferInternal carries the full route needed to persist the batch on acceptance.
type OfferInternal struct {
	BatchTempID    string          `json:"batch_temp_id"`
	OrderIDs       []int64         `json:"order_ids"`
	OptimizedRoute []OptimizedStop `json:"optimized_route"`
}

// IsExpired reports whether the offer deadline has passed at now.
func (o *TripOffer) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// AdminOffer is the operational view of an offer, internal route included.
type AdminOffer struct {
	*TripOffer
	BatchTempID string          `json:"batch_temp_id"`
	OrderIDs    []int64         `json:"order_ids"`
	Route       []OptimizedStop `json:"route"`
}

func NewAdminOffer(o *TripOffer) AdminOffer {
	return AdminOffer{
		TripOffer:   o,
		BatchTempID: o.Internal.BatchTempID,
		OrderIDs:    o.Internal.OrderIDs,
		Route:       o.Internal.OptimizedRoute,
	}
}
