package models

// Provider identifies this gateway in error payloads so operators can
// tell its errors apart from upstream connector errors.
const Provider = "connector-gateway"

// ErrorResponse is the stable JSON error shape rendered at the HTTP
// boundary. Automated clients branch on Error, not on Message prose.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Provider  string `json:"provider"`
	RequestID string `json:"request_id,omitempty"`
}

// NewError builds an ErrorResponse with the gateway branding attached.
func NewError(code, message string) ErrorResponse {
	return ErrorResponse{
		Error:    code,
		Message:  message,
		Provider: Provider,
	}
}
