package i18n

// Error message translation keys.
const (
	// ErrKeyInvalidRequest indicates an invalid request.
	ErrKeyInvalidRequest = "error.invalid_request"
	// ErrKeyInvalidRequestBody indicates an invalid request body.
	ErrKeyInvalidRequestBody = "error.invalid_request_body"
	// ErrKeyInternalError indicates an internal server error.
	ErrKeyInternalError = "error.internal_error"
	// ErrKeyAPIKeyRequired indicates that an API key is required.
	ErrKeyAPIKeyRequired = "error.api_key_required"
	// ErrKeyInvalidAPIKey indicates an invalid API key.
	ErrKeyInvalidAPIKey = "error.invalid_api_key"
	// ErrKeyNotFound indicates a resource was not found.
	ErrKeyNotFound = "error.not_found"
	// ErrKeyRateLimitExceeded indicates rate limit exceeded.
	ErrKeyRateLimitExceeded = "error.rate_limit_exceeded"
	// ErrKeyTimeout indicates a request timeout.
	ErrKeyTimeout = "error.timeout"

	// ErrKeyValidationCoordinates indicates a missing or out-of-range coordinate.
	ErrKeyValidationCoordinates = "error.validation.coordinates"
	// ErrKeyValidationAddress indicates a blank address.
	ErrKeyValidationAddress = "error.validation.address"
	// ErrKeyValidationBatchSize indicates an empty or oversized batch.
	ErrKeyValidationBatchSize = "error.validation.batch_size"
	// ErrKeyValidationWindow indicates an unparseable stats window.
	ErrKeyValidationWindow = "error.validation.window"
	// ErrKeyValidationAction indicates an unknown maintenance action.
	ErrKeyValidationAction = "error.validation.action"

	// ErrKeyProviderUnavailable indicates every provider in the chain failed.
	ErrKeyProviderUnavailable = "error.provider_unavailable"
	// ErrKeyStoreUnavailable indicates the cache store could not be reached.
	ErrKeyStoreUnavailable = "error.store_unavailable"
	// ErrKeyMaintenanceInProgress indicates a maintenance run is already active.
	ErrKeyMaintenanceInProgress = "error.maintenance_in_progress"
)
