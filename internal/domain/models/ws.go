package models

import (
	"encoding/json"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

// WSMessage is the envelope of every driver websocket frame.
type WSMessage struct {
	Type types.WSMessageType `json:"type"`
	Data any                 `json:"data,omitempty"`
}

// WSInbound is an inbound frame with its payload left undecoded.
type WSInbound struct {
	Type types.WSMessageType `json:"type"`
	Data json.RawMessage     `json:"data,omitempty"`
}
