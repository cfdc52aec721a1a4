package models

// Error codes returned in the error envelope
const (
	ErrCodeNoFile           = "NO_FILE"
	ErrCodeUnexpectedFile   = "UNEXPECTED_FILE"
	ErrCodeFileTooLarge     = "FILE_TOO_LARGE"
	ErrCodeInvalidFormat    = "INVALID_FORMAT"
	ErrCodeExtractionFailed = "EXTRACTION_FAILED"
	ErrCodeInvalidPayload   = "INVALID_PAYLOAD"
	ErrCodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	ErrCodeSaveFailed       = "SAVE_FAILED"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the failure envelope shared by every endpoint
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// DataResponse is the success envelope of the extraction endpoints
type DataResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
}

// IdentityResponse carries the remapped identity fields plus the optional
// diagnostics the identity OCR service reports.
type IdentityResponse struct {
	Success        bool           `json:"success"`
	Data           map[string]any `json:"data"`
	Detections     any            `json:"detections,omitempty"`
	ProcessingTime any            `json:"processing_time,omitempty"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error:   ErrorBody{Code: code, Message: message},
	}
}
