package models

import "time"

// EligibleOrder is a snapshot of an order that is ready for pickup, geolocated and not yet
// attached to a delivery stop. It lives for one pipeline run.
type EligibleOrder struct {
	ID          int64       `json:"id"`
	CustomerID  int64       `json:"customer_id"`
	Coordinates Coordinates `json:"coordinates"`
	Address     string      `json:"address,omitempty"`
	Total       float64     `json:"total"`
	ReadyAt     time.Time   `json:"ready_at"`
	Notes       string      `json:"notes,omitempty"`
}
