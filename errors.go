package ramp

import "fmt"

// RampError represents a ramp-specific error
type RampError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *RampError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeInvalidSelection = "invalid_selection"
	ErrCodeFetchFailed      = "fetch_failed"
	ErrCodeNotReady         = "not_ready"
	ErrCodeAmountTooLow     = "amount_too_low"
	ErrCodeSellPreviewOnly  = "sell_preview_only"
	ErrCodeStorageFailed    = "storage_failed"
	ErrCodeInvalidAddress   = "invalid_address"
)

// NewRampError creates a new ramp error
func NewRampError(code, message string, details map[string]interface{}) *RampError {
	return &RampError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
