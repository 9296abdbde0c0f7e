package result

import (
	"github.com/google/btree"
	"github.com/rs/zerolog"
)

type item struct {
	entry Entry
	seq   int
}

// less orders by (severity, message); among equal keys the later insertion
// sorts lower, so a descending walk keeps insertion order for ties.
func less(a, b item) bool {
	if a.entry.Severity != b.entry.Severity {
		return a.entry.Severity < b.entry.Severity
	}
	if a.entry.Message != b.entry.Message {
		return a.entry.Message < b.entry.Message
	}
	return a.seq > b.seq
}

// Set accumulates the entries of one check run.
type Set struct {
	log      zerolog.Logger
	entries  *btree.BTreeG[item]
	ids      map[Category][]string
	severity Severity
	seq      int
}

// NewSet returns an empty Set. Entries are logged at debug level.
func NewSet(log zerolog.Logger) *Set {
	return &Set{
		log:      log,
		entries:  btree.NewG(8, less),
		ids:      make(map[Category][]string),
		severity: OK,
	}
}

// Add records an entry and escalates the aggregate severity.
func (s *Set) Add(e Entry) {
	s.seq++
	s.entries.ReplaceOrInsert(item{entry: e, seq: s.seq})
	s.ids[e.Category] = append(s.ids[e.Category], e.ID)
	if e.Severity > s.severity {
		s.severity = e.Severity
	}

	s.log.Debug().
		Str("severity", e.Severity.String()).
		Str("id", e.ID).
		Str("message", e.Message).
		Msg("result was added")
}

// Severity returns the most severe entry state, OK when empty.
func (s *Set) Severity() Severity {
	return s.severity
}

// Len returns the number of entries.
func (s *Set) Len() int {
	return s.entries.Len()
}

// IDs returns the identifiers in a category, in insertion order.
func (s *Set) IDs(c Category) []string {
	out := make([]string, len(s.ids[c]))
	copy(out, s.ids[c])
	return out
}

// Count returns the number of entries in a category.
func (s *Set) Count(c Category) int {
	return len(s.ids[c])
}

// Messages returns all messages, most severe first.
func (s *Set) Messages() []string {
	out := make([]string, 0, s.entries.Len())
	s.entries.Descend(func(it item) bool {
		out = append(out, it.entry.Message)
		return true
	})
	return out
}
