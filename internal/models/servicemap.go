package models

// PublicAuthHeader is the credential-stripped projection of a connector
// auth header: the name survives, the value never does.
type PublicAuthHeader struct {
	Name string `json:"name"`
}

// PublicQuota mirrors the manifest quota block in the service map.
type PublicQuota struct {
	PerMinute uint  `json:"per_minute"`
	PerHour   uint  `json:"per_hour"`
	PerDay    *uint `json:"per_day,omitempty"`
}

// PublicConnector is the public-safe projection of an enabled manifest
// entry exposed through the service map.
type PublicConnector struct {
	ID          string                 `json:"id"`
	Version     string                 `json:"version"`
	Status      string                 `json:"status"`
	Description string                 `json:"description,omitempty"`
	AuthHeaders []PublicAuthHeader     `json:"auth_headers"`
	Scopes      []string               `json:"scopes"`
	Quotas      PublicQuota            `json:"quotas"`
	TTLSeconds  uint                   `json:"ttl_seconds"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ServiceMapMetadata describes the manifest snapshot the payload was
// built from.
type ServiceMapMetadata struct {
	Version     string `json:"version"`
	GeneratedAt string `json:"generatedAt"`
	Count       int    `json:"count"`
}

// ServiceMapPayload is the signed service map returned to authenticated
// clients. Signature covers metadata and connectors, never itself.
type ServiceMapPayload struct {
	Metadata   ServiceMapMetadata `json:"metadata"`
	Connectors []PublicConnector  `json:"connectors"`
	Signature  string             `json:"signature"`
}
