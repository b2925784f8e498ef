package models

import (
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

// Driver is the durable driver record.
type Driver struct {
	ID        int64
	UserID    int64
	Name      string
	Phone     string
	Plate     string
	Status    types.DriverStatus
	Position  *Coordinates // last durable position, nil if never reported
	UpdatedAt time.Time

	LastCompletedAt *time.Time // end of the latest completed batch
}

// AvailableDriver is a driver that may receive an offer, with its best known position.
type AvailableDriver struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	Name            string      `json:"name"`
	Phone           string      `json:"phone"`
	Plate           string      `json:"plate"`
	Coordinates     Coordinates `json:"coordinates"`
	LastCompletedAt *time.Time  `json:"last_completed_at,omitempty"`
	FromDatabase    bool        `json:"from_database"`
}

// DriverCandidate is the scoring record of one driver for one batch. Lower score wins.
type DriverCandidate struct {
	Driver                 AvailableDriver
	DistanceToRestaurantKm float64
	EtaMinutes             float64
	IdleMinutes            float64
	Score                  float64
}
