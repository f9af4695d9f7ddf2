package models

// ConnectorResult is the response shape connector backends are
// contractually required to return from an invoke call. A response
// missing the result envelope is a connector-side contract violation.
type ConnectorResult struct {
	Result map[string]interface{} `json:"result" validate:"required"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}
