package upload

// Structural error codes. A structural error aborts the whole upload before
// any row is reconciled; row-level failures are reported through
// UploadRowError instead and never surface as Go errors.
const (
	CodeFileRequired     = "FILE_REQUIRED"
	CodeInvalidFormat    = "INVALID_FORMAT"
	CodeInvalidMode      = "INVALID_MODE"
	CodeFormatMismatch   = "FORMAT_MISMATCH"
	CodeParseError       = "PARSE_ERROR"
	CodeHeaderValidation = "HEADER_VALIDATION"
)

// Error is a structural upload error carrying a machine-readable code the
// HTTP layer maps onto its error envelope.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}
