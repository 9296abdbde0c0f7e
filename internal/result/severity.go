// Package result classifies checked resources and aggregates their severities.
package result

import "fmt"

// Severity is a Nagios plugin state. The numeric value is the exit code.
type Severity int

const (
	// OK is used when the resource is healthy.
	OK Severity = 0

	// Warning is used for unrecognised or degraded states.
	Warning Severity = 1

	// Critical is used for DOWN or missing resources.
	Critical Severity = 2

	// Unknown is used when the check could not produce a valid result.
	Unknown Severity = 3
)

// Valid reports whether s is one of the four plugin states.
func (s Severity) Valid() bool {
	return s >= OK && s <= Unknown
}

func (s Severity) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	case Unknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ExitCode returns the plugin exit code for s. Invalid severities map to Unknown.
func (s Severity) ExitCode() int {
	if !s.Valid() {
		return int(Unknown)
	}
	return int(s)
}

// Category groups entries for the summary line.
type Category int

const (
	CategoryOK Category = iota
	CategoryWarning
	CategoryCritical
	CategoryNotFound
)

func (c Category) String() string {
	switch c {
	case CategoryOK:
		return "ok"
	case CategoryWarning:
		return "warning"
	case CategoryCritical:
		return "critical"
	case CategoryNotFound:
		return "not_found"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Categories lists every category in summary order, most severe first.
func Categories() []Category {
	return []Category{CategoryNotFound, CategoryCritical, CategoryWarning, CategoryOK}
}
