package types

import "errors"

var (
	ErrOfferNotFound        = errors.New("offer not found")
	ErrOfferExpired         = errors.New("offer expired")
	ErrOfferAlreadyResolved = errors.New("offer already resolved")

	ErrRunAlreadyScheduled = errors.New("dispatch run already scheduled")
	ErrRunInProgress       = errors.New("dispatch run in progress")
	ErrDispatcherStopped   = errors.New("dispatcher is not running")

	ErrDriverNotFound     = errors.New("driver not found")
	ErrDriverNotAvailable = errors.New("driver is not available")
	ErrDriverNotConnected = errors.New("driver is not connected")

	ErrOrderAlreadyBatched = errors.New("order already attached to a delivery batch")
	ErrLocationNotFound    = errors.New("driver location not found")
	ErrCacheUnavailable    = errors.New("location cache unavailable")

	ErrMatrixUnavailable = errors.New("distance matrix provider unavailable")
	ErrBatchTooLarge     = errors.New("batch exceeds maximum stops for exact routing")
	ErrUnreachableStop   = errors.New("stop is unreachable")
	ErrEmptyBatch        = errors.New("batch has no orders")

	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNotFound      = errors.New("requested item not found")
)
