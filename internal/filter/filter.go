// Package filter selects which enumerated resources a check evaluates.
package filter

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/catalog"
	"github.com/pponnuvel/charm-openstack-service-checks/pkg/resource"
)

// Usage errors returned by NewPolicy. Their text is shown to the operator.
var (
	ErrAllNotSupported  = errors.New("flag '--all' is not supported")
	ErrAllWithIDs       = errors.New("'--all/--id' are mutually exclusive")
	ErrNoSelection      = errors.New("at least one of '--all/--id' parameters must be entered")
	ErrSkipWithoutAll   = errors.New("'--skip-id' must be used with '--all'")
	ErrSelectWithoutAll = errors.New("'--select' must be used with '--all'")
	ErrSelectFormat     = errors.New("'--select' must be in KEY=VALUE form")
)

// Mode is the selection mode of a Policy.
type Mode int

const (
	// ModeExplicitIDs checks only the requested IDs.
	ModeExplicitIDs Mode = iota + 1
	// ModeAll checks every resource except skipped or unselected ones.
	ModeAll
)

func (m Mode) String() string {
	switch m {
	case ModeExplicitIDs:
		return "explicit-ids"
	case ModeAll:
		return "all"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Options are the raw selection flags.
type Options struct {
	All     bool
	IDs     []string
	SkipIDs []string
	Select  []string // KEY=VALUE pairs
}

// Policy decides which resources are checked. It is immutable once built.
type Policy struct {
	mode       Mode
	includeIDs map[string]struct{}
	skipIDs    map[string]struct{}
	selectors  map[string]string
}

// NewPolicy validates opts for the given kind and builds a Policy.
func NewPolicy(kind catalog.Kind, opts Options) (Policy, error) {
	if opts.All && kind.ExistenceOnly() {
		return Policy{}, fmt.Errorf("%w with resource %s", ErrAllNotSupported, kind)
	}

	switch {
	case opts.All && len(opts.IDs) > 0:
		return Policy{}, ErrAllWithIDs
	case !opts.All && len(opts.IDs) == 0:
		return Policy{}, ErrNoSelection
	case !opts.All && len(opts.SkipIDs) > 0:
		return Policy{}, ErrSkipWithoutAll
	case !opts.All && len(opts.Select) > 0:
		return Policy{}, ErrSelectWithoutAll
	}

	if !opts.All {
		return Policy{mode: ModeExplicitIDs, includeIDs: toSet(opts.IDs)}, nil
	}

	selectors, err := ParseSelectors(opts.Select)
	if err != nil {
		return Policy{}, err
	}
	return Policy{mode: ModeAll, skipIDs: toSet(opts.SkipIDs), selectors: selectors}, nil
}

// ParseSelectors turns KEY=VALUE pairs into a map, splitting on the first '='.
// A later pair for the same key wins.
func ParseSelectors(pairs []string) (map[string]string, error) {
	selectors := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: %q", ErrSelectFormat, p)
		}
		selectors[k] = v
	}
	return selectors, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Mode returns the selection mode.
func (p Policy) Mode() Mode {
	return p.mode
}

// IncludeIDs returns the requested IDs in sorted order (explicit mode only).
func (p Policy) IncludeIDs() []string {
	return slices.Sorted(maps.Keys(p.includeIDs))
}

// SkipIDs returns the skipped IDs in sorted order (all mode only).
func (p Policy) SkipIDs() []string {
	return slices.Sorted(maps.Keys(p.skipIDs))
}

// Selectors returns a copy of the attribute selectors (all mode only).
func (p Policy) Selectors() map[string]string {
	return maps.Clone(p.selectors)
}

// Reason explains why a resource is left out. Empty means it is checked.
func (p Policy) Reason(r resource.Resource) string {
	if p.mode != ModeAll {
		if _, ok := p.includeIDs[r.ID]; !ok {
			return "not requested"
		}
		return ""
	}

	if _, ok := p.skipIDs[r.ID]; ok {
		return "skipped"
	}

	// every selector must match; a missing attribute never matches
	for k, want := range p.selectors {
		got, ok := r.Attribute(k)
		if !ok || got != want {
			return fmt.Sprintf("attribute %s does not match", k)
		}
	}
	return ""
}

// Select yields the resources that pass the policy, in enumeration order.
func (p Policy) Select(resources []resource.Resource, log zerolog.Logger) iter.Seq[resource.Resource] {
	return func(yield func(resource.Resource) bool) {
		for _, r := range resources {
			if reason := p.Reason(r); reason != "" {
				log.Debug().Str("id", r.ID).Str("reason", reason).Msg("resource will not be checked")
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}
