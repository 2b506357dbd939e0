package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeInvalidArgument = "invalid_argument"
	ErrCodeMissingField    = "missing_field"

	// Catalog errors
	ErrCodeCertificationNotFound = "certification_not_found"
	ErrCodeUnknownTestType       = "unknown_test_type"
	ErrCodeInsufficientQuestions = "insufficient_questions"
	ErrCodeCatalogFetchFailed    = "catalog_fetch_failed"

	// Session errors
	ErrCodeInvalidSessionID   = "invalid_session_id"
	ErrCodeSessionNotFound    = "session_not_found"
	ErrCodeSessionCompleted   = "session_completed"
	ErrCodeSessionInProgress  = "session_in_progress"
	ErrCodeSessionStartFailed = "session_start_failed"
	ErrCodeHistoryFetchFailed = "history_fetch_failed"

	// Progress errors
	ErrCodeUnknownWindow       = "unknown_window"
	ErrCodeProgressNotFound    = "progress_not_found"
	ErrCodeProgressFetchFailed = "progress_fetch_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
