package dto

import (
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/pkg/validator"
)

// LocationUpdate is the payload of a location.update frame.
type LocationUpdate struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

func (r *LocationUpdate) Validate(v *validator.Validator) {
	v.Struct(r)
}

func (r *LocationUpdate) Coordinates() models.Coordinates {
	return models.Coordinates{Lat: *r.Lat, Lng: *r.Lng}
}

// OfferAction is the payload of trip.accept and trip.reject frames.
type OfferAction struct {
	OfferID string `json:"offer_id" validate:"required,uuid"`
}

func (r *OfferAction) Validate(v *validator.Validator) {
	v.Struct(r)
}

type Connected struct {
	DriverID     int64     `json:"driver_id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	ActiveOffers int       `json:"active_offers"`
	ServerTime   time.Time `json:"server_time"`
}

type LocationAck struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

type TripAccepted struct {
	OfferID string                 `json:"offer_id"`
	BatchID int64                  `json:"batch_id"`
	Stops   []models.PersistedStop `json:"stops"`
}

type OfferRef struct {
	OfferID string `json:"offer_id"`
}

type TripFailed struct {
	OfferID string `json:"offer_id"`
	Reason  string `json:"reason"`
}

type Pong struct {
	Timestamp time.Time `json:"timestamp"`
}
