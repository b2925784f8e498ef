package types

// Driver websocket message types.
type WSMessageType string

func (t WSMessageType) String() string {
	return string(t)
}

const (
	// inbound
	WSLocationUpdate WSMessageType = "location.update"
	WSTripAccept     WSMessageType = "trip.accept"
	WSTripReject     WSMessageType = "trip.reject"
	WSPing           WSMessageType = "ping"

	// outbound
	WSConnected    WSMessageType = "connected"
	WSTripOffer    WSMessageType = "trip.offer"
	WSTripAccepted WSMessageType = "trip.accepted"
	WSTripRejected WSMessageType = "trip.rejected"
	WSTripExpired  WSMessageType = "trip.expired"
	WSTripFailed   WSMessageType = "trip.failed"
	WSLocationAck  WSMessageType = "location.ack"
	WSPong         WSMessageType = "pong"
	WSError        WSMessageType = "error"
)
