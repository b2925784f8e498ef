package types

type ServiceMode string

// Dispatch Service - clusters ready orders, selects drivers, routes batches and runs the offer protocol
const (
	DispatchService ServiceMode = "dispatch-service"
)

// DriverStatus is the durable driver state. Only AVAILABLE drivers are considered by selection.
type DriverStatus string

const (
	DriverOffline   DriverStatus = "OFFLINE"
	DriverAvailable DriverStatus = "AVAILABLE"
	DriverBusy      DriverStatus = "BUSY"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "PENDING"
	OrderPreparing      OrderStatus = "PREPARING"
	OrderReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderInDelivery     OrderStatus = "IN_DELIVERY"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCancelled      OrderStatus = "CANCELLED"
)

type BatchStatus string

const (
	BatchAssigned   BatchStatus = "ASSIGNED"
	BatchInProgress BatchStatus = "IN_PROGRESS"
	BatchCompleted  BatchStatus = "COMPLETED"
	BatchCancelled  BatchStatus = "CANCELLED"
)

type StopStatus string

const (
	StopPending   StopStatus = "PENDING"
	StopArrived   StopStatus = "ARRIVED"
	StopDelivered StopStatus = "DELIVERED"
	StopFailed    StopStatus = "FAILED"
)

// OfferOutcome is the terminal state of an offer.
type OfferOutcome string

func (o OfferOutcome) String() string {
	return string(o)
}

const (
	OfferAccepted OfferOutcome = "accepted"
	OfferRejected OfferOutcome = "rejected"
	OfferExpired  OfferOutcome = "expired"
)

// LocationSource tells where a driver position came from.
type LocationSource string

const (
	SourceGPS      LocationSource = "gps"
	SourceDatabase LocationSource = "database"
)

type ETAProviderKind string

const (
	ETAHaversine ETAProviderKind = "haversine"
	ETAMatrix    ETAProviderKind = "matrix"
)
