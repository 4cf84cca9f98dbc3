package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidExecuteOrder  ErrorCode = 102
	ErrCodeInvalidOrder         ErrorCode = 103
	ErrCodeInvalidInterval      ErrorCode = 104
	ErrCodeInvalidQuantity      ErrorCode = 105
	ErrCodeInvalidPrice         ErrorCode = 106
	ErrCodeInvalidProvider      ErrorCode = 107

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound        ErrorCode = 200
	ErrCodeQueryFailed         ErrorCode = 201
	ErrCodeStoreUnavailable    ErrorCode = 202
	ErrCodeSymbolNotRegistered ErrorCode = 203

	// Signal errors (300-399)
	ErrCodeDetectorConfig ErrorCode = 300

	// Controller errors (400-499)
	ErrCodeUnexpectedEvent ErrorCode = 400
	ErrCodeNoPosition      ErrorCode = 401
	ErrCodeOrderInFlight   ErrorCode = 402

	// Gateway errors (500-599)
	ErrCodeSubmitFailed     ErrorCode = 500
	ErrCodeOrderQueryFailed ErrorCode = 501
	ErrCodePositionQuery    ErrorCode = 502
	ErrCodePriceQuery       ErrorCode = 503
	ErrCodeOrderNotFound    ErrorCode = 504

	// Feed errors (600-699)
	ErrCodeStreamConnect  ErrorCode = 600
	ErrCodeStreamClosed   ErrorCode = 601
	ErrCodeStreamParse    ErrorCode = 602
	ErrCodeListenKey      ErrorCode = 603
	ErrCodeDownloadFailed ErrorCode = 604

	// History errors (700-799)
	ErrCodeHistoryInit  ErrorCode = 700
	ErrCodeHistoryWrite ErrorCode = 701
	ErrCodeHistoryRead  ErrorCode = 702
)
