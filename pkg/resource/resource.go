// Package resource defines the unified OpenStack resource record checked by the plugins.
package resource

// StatusUnknown is reported for resources whose API record carries no status.
const StatusUnknown = "UNKNOWN"

// Resource represents one OpenStack resource in unified format.
// Nothing is stored between runs; a Resource lives for a single check.
type Resource struct {
	ID     string            `json:"id"`     // Unique identifier (UUID)
	Kind   string            `json:"kind"`   // Resource type (e.g., "server", "port")
	Name   string            `json:"name"`   // Human-readable name, may be empty
	Status string            `json:"status"` // API status, empty when the API has none
	Attrs  map[string]string `json:"attrs"`  // Scalar API attributes keyed by their API name
}

// Attribute returns the named API attribute. Only scalar attributes are
// exposed; lists and objects are reported as absent.
func (r Resource) Attribute(name string) (string, bool) {
	if r.Attrs == nil {
		return "", false
	}
	v, ok := r.Attrs[name]
	return v, ok
}
