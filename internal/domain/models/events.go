package models

import (
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

// RabbitMQ message: order_topic exchange, key order.status.ready
type OrderReadyMessage struct {
	OrderID   int64     `json:"order_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// RabbitMQ message: dispatch_topic exchange, key batch.assigned.<batch_id>
type BatchAssignedMessage struct {
	BatchID   int64           `json:"batch_id"`
	DriverID  int64           `json:"driver_id"`
	OfferID   string          `json:"offer_id"`
	Stops     []PersistedStop `json:"stops"`
	Timestamp time.Time       `json:"timestamp"`
}

// RabbitMQ message: dispatch_topic exchange, key offer.<outcome>.<offer_id>
type OfferOutcomeMessage struct {
	OfferID   string             `json:"offer_id"`
	DriverID  int64              `json:"driver_id"`
	OrderIDs  []int64            `json:"order_ids"`
	Outcome   types.OfferOutcome `json:"outcome"`
	Timestamp time.Time          `json:"timestamp"`
}

// RabbitMQ message: dispatch_topic exchange, key driver.status.<driver_id>
type DriverStatusMessage struct {
	DriverID  int64              `json:"driver_id"`
	Status    types.DriverStatus `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
}
