package lifecycle

import (
	"math"
	"strconv"
	"time"

	"wastewatch/pkg/types"
)

const (
	DefaultSLAHours = 24
	BreachedLabel   = "Breached"
)

// Policy decides the hour budget of a report. Severity overrides are optional;
// without them every report gets DefaultHours.
type Policy struct {
	DefaultHours  int
	SeverityHours map[types.Severity]int
}

// NewPolicy builds a Policy from configuration values, ignoring unknown
// severities and non-positive budgets.
func NewPolicy(defaultHours int, severityHours map[string]int) Policy {
	p := Policy{DefaultHours: defaultHours, SeverityHours: map[types.Severity]int{}}
	for k, v := range severityHours {
		sev := types.Severity(k)
		if !sev.IsValid() || v <= 0 {
			continue
		}
		p.SeverityHours[sev] = v
	}
	return p
}

// Hours returns the allowed-hours budget. Category is accepted for when
// category budgets are configured; today only severity varies it.
func (p Policy) Hours(_ types.WasteCategory, severity types.Severity) int {
	if h, ok := p.SeverityHours[severity]; ok && h > 0 {
		return h
	}
	if p.DefaultHours > 0 {
		return p.DefaultHours
	}
	return DefaultSLAHours
}

func DueAt(createdAt time.Time, hours int) time.Time {
	if hours <= 0 {
		hours = DefaultSLAHours
	}
	return createdAt.Add(time.Duration(hours) * time.Hour)
}

// IsBreach is derived on read and never stored.
func IsBreach(now, dueAt time.Time, status types.ReportStatus) bool {
	return now.After(dueAt) && !status.IsTerminal()
}

// Remaining returns the whole hours left before dueAt, never negative, and the
// label to display for it.
func Remaining(now, dueAt time.Time, status types.ReportStatus) (int, string) {
	if IsBreach(now, dueAt, status) {
		return 0, BreachedLabel
	}

	hours := int(math.Round(dueAt.Sub(now).Hours()))
	if hours < 0 {
		hours = 0
	}
	return hours, strconv.Itoa(hours) + "h"
}
