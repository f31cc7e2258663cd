package httputil

// Machine-readable error codes returned in ErrorResponse.Code
const (
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"

	// Session
	CodeMissingAuth          = "MISSING_AUTH"
	CodeNoSession            = "NO_SESSION"
	CodeSessionExpired       = "SESSION_EXPIRED"
	CodeInvalidSessionTicket = "INVALID_SESSION_TICKET"
	CodeRegistrationRequired = "REGISTRATION_REQUIRED"
	CodeOAuthStateMismatch   = "OAUTH_STATE_MISMATCH"

	// Identity provider, mirrored from its auth/* codes
	CodeEmailAlreadyInUse = "auth/email-already-in-use"
	CodeWeakPassword      = "auth/weak-password"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeUserDisabled      = "auth/user-disabled"
	CodeTooManyRequests   = "auth/too-many-requests"
	CodePopupClosed       = "auth/popup-closed-by-user"

	// Form validation
	CodeEmailRequired       = "EMAIL_REQUIRED"
	CodePasswordRequired    = "PASSWORD_REQUIRED"
	CodePasswordPolicy      = "PASSWORD_POLICY"
	CodeDisplayNameRequired = "DISPLAY_NAME_REQUIRED"
	CodeWorkerTypesRequired = "WORKER_TYPES_REQUIRED"

	// Backend
	CodeBackendError = "BACKEND_ERROR"
	CodeConflict     = "CONFLICT"
)
