package manifest

// AuthHeader is a single header required to authenticate against an
// upstream connector backend. Values are credentials and must never be
// exposed outside outbound dispatch.
type AuthHeader struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// Authentication is the full auth spec for contacting a connector.
type Authentication struct {
	Headers []AuthHeader `json:"headers" validate:"required,min=1,dive"`
}

// Quota is the advisory rate budget for calls to a connector backend.
// Zero means no budget; outbound limiting is skipped for that window.
type Quota struct {
	PerMinute uint  `json:"per_minute"`
	PerHour   uint  `json:"per_hour"`
	PerDay    *uint `json:"per_day,omitempty"`
}

// Connector status values.
const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
	StatusPreview  = "preview"
)

// Entry is the manifest record for one connector.
type Entry struct {
	ID             string                 `json:"id" validate:"required,connector_id"`
	Version        string                 `json:"version" validate:"required"`
	Status         string                 `json:"status" validate:"required,oneof=enabled disabled preview"`
	Description    string                 `json:"description,omitempty" validate:"omitempty,min=1"`
	Authentication Authentication         `json:"authentication" validate:"required"`
	Scopes         []string               `json:"scopes" validate:"unique"`
	Quotas         Quota                  `json:"quotas"`
	TTLSeconds     uint                   `json:"ttl_seconds" validate:"gte=1"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Enabled reports whether the entry is active and may be exposed or
// dispatched to.
func (e *Entry) Enabled() bool {
	return e.Status == StatusEnabled
}

// Manifest is the top-level connector document. Loaded once at startup
// and immutable for the process lifetime; a changed manifest requires a
// restart.
type Manifest struct {
	SchemaVersion string  `json:"schema_version" validate:"required,semverish"`
	GeneratedAt   string  `json:"generated_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Connectors    []Entry `json:"connectors" validate:"required,min=1,dive"`
}

// TTLSeconds returns the cache lifetime hint for consumers of the
// service map: the maximum TTL over all connectors.
func (m *Manifest) TTLSeconds() uint {
	var max uint
	for i := range m.Connectors {
		if m.Connectors[i].TTLSeconds > max {
			max = m.Connectors[i].TTLSeconds
		}
	}
	return max
}
