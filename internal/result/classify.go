package result

import (
	"fmt"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/catalog"
	"github.com/pponnuvel/charm-openstack-service-checks/pkg/resource"
)

// Recognised API statuses.
const (
	StatusActive = "ACTIVE"
	StatusDown   = "DOWN"
)

// Entry is the classification of one resource.
type Entry struct {
	Severity Severity
	Category Category
	ID       string
	Message  string
}

// Classify maps a resource observation to an Entry. Rules apply in order:
// ACTIVE, DOWN, present existence-only kind without status, not found,
// anything else. status is empty when there is none to report.
func Classify(kind catalog.Kind, id, status string, exists bool) Entry {
	switch {
	case status == StatusActive:
		return Entry{OK, CategoryOK, id, statusMessage(kind, id, status)}
	case status == StatusDown:
		return Entry{Critical, CategoryCritical, id, statusMessage(kind, id, status)}
	case status == "" && exists && kind.ExistenceOnly():
		return Entry{OK, CategoryOK, id, fmt.Sprintf("%s '%s' exists", kind, id)}
	case !exists:
		return Entry{Critical, CategoryNotFound, id, fmt.Sprintf("%s '%s' was not found", kind, id)}
	}

	if status == "" {
		status = resource.StatusUnknown
	}
	return Entry{Warning, CategoryWarning, id, statusMessage(kind, id, status)}
}

func statusMessage(kind catalog.Kind, id, status string) string {
	return fmt.Sprintf("%s '%s' is in %s status", kind, id, status)
}
