// Package report renders check results in the Nagios plugin output format.
package report

import (
	"fmt"
	"strings"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/catalog"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/result"
)

// Source is what a report is rendered from; *result.Set implements it.
type Source interface {
	Severity() result.Severity
	Len() int
	Count(c result.Category) int
	Messages() []string
}

var _ Source = (*result.Set)(nil)

// Report is the final plugin output. Only the entry point prints and exits.
type Report struct {
	Severity result.Severity
	ExitCode int
	Text     string
}

type options struct {
	perfData bool
}

// Option tweaks rendering.
type Option func(*options)

// WithPerfData appends per-category performance data to the title line.
func WithPerfData() Option {
	return func(o *options) { o.perfData = true }
}

var summaries = map[result.Category]string{
	result.CategoryNotFound: "%d/%d were not found",
	result.CategoryCritical: "%d/%d are DOWN",
	result.CategoryWarning:  "%d/%d in UNKNOWN",
	result.CategoryOK:       "%d/%d passed",
}

// Title summarises non-empty categories, most severe first.
func Title(kind catalog.Kind, src Source) string {
	total := src.Len()
	parts := make([]string, 0, len(summaries))
	for _, c := range result.Categories() {
		if n := src.Count(c); n > 0 {
			parts = append(parts, fmt.Sprintf(summaries[c], n, total))
		}
	}
	return fmt.Sprintf("%ss %s", kind, strings.Join(parts, ", "))
}

// PerfData returns Nagios performance data with one datum per category.
func PerfData(src Source) string {
	total := src.Len()
	data := make([]string, 0, len(summaries))
	for _, c := range []result.Category{result.CategoryOK, result.CategoryWarning, result.CategoryCritical, result.CategoryNotFound} {
		data = append(data, fmt.Sprintf("'%s'=%d;;;0;%d", c, src.Count(c), total))
	}
	return strings.Join(data, " ")
}

// Render builds the plugin output for a finished check.
func Render(kind catalog.Kind, src Source, opts ...Option) Report {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	title := Title(kind, src)
	if o.perfData {
		title += " | " + PerfData(src)
	}
	output := title + "\n" + strings.Join(src.Messages(), "\n")

	sev := src.Severity()
	if !sev.Valid() {
		return Report{
			Severity: result.Unknown,
			ExitCode: result.Unknown.ExitCode(),
			Text:     fmt.Sprintf("%s: not valid exit_code %d %s", result.Unknown, int(sev), output),
		}
	}

	return Report{
		Severity: sev,
		ExitCode: sev.ExitCode(),
		Text:     fmt.Sprintf("%s: %s", sev, output),
	}
}

// Failure reports a check that could not run, e.g. the cloud API was unreachable.
func Failure(err error) Report {
	return Report{
		Severity: result.Unknown,
		ExitCode: result.Unknown.ExitCode(),
		Text:     fmt.Sprintf("%s: %v", result.Unknown, err),
	}
}
