package models

import (
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

// BatchProposal is a group of orders that one driver could deliver in one trip.
// TempID is process local and never persisted.
type BatchProposal struct {
	TempID              string          `json:"temp_id"`
	OrderIDs            []int64         `json:"order_ids"`
	Orders              []EligibleOrder `json:"orders"`
	Centroid            Coordinates     `json:"centroid"`
	OldestOrderTime     time.Time       `json:"oldest_order_time"`
	EstimatedDistanceKm float64         `json:"estimated_distance_km"`
}

// OptimizedStop is one delivery stop in route order. Sequence is 1-based and dense.
type OptimizedStop struct {
	OrderID                int64       `json:"order_id"`
	Sequence               int         `json:"sequence"`
	Coordinates            Coordinates `json:"coordinates"`
	Address                string      `json:"address,omitempty"`
	DistanceFromPreviousKm float64     `json:"distance_from_previous_km"`
	EtaFromPreviousMinutes float64     `json:"eta_from_previous_minutes"`
}

// TentativeAssignment pairs a batch with a driver until an offer is created from it.
type TentativeAssignment struct {
	Batch             BatchProposal
	Driver            AvailableDriver
	DriverScore       float64
	DriverEtaMinutes  float64
	OptimizedRoute    []OptimizedStop
	TotalDistanceKm   float64
	TotalTimeMinutes  float64
	EstimatedEarnings float64
}

// PersistedBatch is the durable result of an accepted offer.
type PersistedBatch struct {
	BatchID  int64           `json:"batch_id"`
	DriverID int64           `json:"driver_id"`
	Stops    []PersistedStop `json:"stops"`
}

type PersistedStop struct {
	StopID   int64 `json:"stop_id"`
	OrderID  int64 `json:"order_id"`
	Sequence int   `json:"sequence"`
}

// NewBatch is the insert payload of a delivery batch.
type NewBatch struct {
	DriverID          int64
	Status            types.BatchStatus
	TotalDistanceKm   float64
	EstimatedMinutes  int
	EstimatedEarnings float64
	AssignedAt        time.Time
}

// NewStop is the insert payload of a delivery stop.
type NewStop struct {
	BatchID  int64
	OrderID  int64
	Sequence int
	Status   types.StopStatus
}
