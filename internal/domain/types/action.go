package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"

	ActionOrderReady       = "order_ready"
	ActionRunScheduled     = "dispatch_run_scheduled"
	ActionRunStarted       = "dispatch_run_started"
	ActionRunFinished      = "dispatch_run_finished"
	ActionClustering       = "clustering"
	ActionSelection        = "driver_selection"
	ActionRouting          = "route_optimization"
	ActionOfferCreated     = "offer_created"
	ActionOfferSent        = "offer_sent"
	ActionOfferAccepted    = "offer_accepted"
	ActionOfferRejected    = "offer_rejected"
	ActionOfferExpired     = "offer_expired"
	ActionBatchPersisted   = "batch_persisted"
	ActionDriverConnected  = "driver_connected"
	ActionDriverDisconnect = "driver_disconnected"
	ActionLocationUpdate   = "driver_location_update"
	ActionCacheDegraded    = "location_cache_degraded"
	ActionCacheRecovered   = "location_cache_recovered"
	ActionSweep            = "dispatch_sweep"
)
