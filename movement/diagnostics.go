package movement

import (
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
)

// Diagnostics counts non-fatal anomalies and notable events of a component. Nothing here
// changes behaviour; it exists so embedders can observe silent degradations.
type Diagnostics struct {
	Ticks      uint64
	Iterations uint64
	// BudgetExhausted counts physics loops that stopped on the iteration cap with time left.
	BudgetExhausted uint64
	// Stuck counts moves that stayed inside geometry after sliding out of it.
	Stuck                uint64
	NaNClamped           uint64
	PenetrationsResolved uint64
	StepUps              uint64
	StepUpsRejected      uint64
	Landings             uint64
	ModeChanges          uint64
}

// Report returns the counters as an ordered key/value list for logging.
func (d Diagnostics) Report() *orderedmap.OrderedMap[string, any] {
	m := orderedmap.NewOrderedMap[string, any]()
	m.Set("ticks", d.Ticks)
	m.Set("iterations", d.Iterations)
	m.Set("budget_exhausted", d.BudgetExhausted)
	m.Set("stuck", d.Stuck)
	m.Set("nan_clamped", d.NaNClamped)
	m.Set("penetrations_resolved", d.PenetrationsResolved)
	m.Set("step_ups", d.StepUps)
	m.Set("step_ups_rejected", d.StepUpsRejected)
	m.Set("landings", d.Landings)
	m.Set("mode_changes", d.ModeChanges)
	return m
}

// LogArgs flattens a report into slog key/value arguments.
func LogArgs(report *orderedmap.OrderedMap[string, any]) []any {
	args := make([]any, 0, report.Len()*2)
	for _, key := range report.Keys() {
		v, _ := report.Get(key)
		args = append(args, key, v)
	}
	return args
}

// ReportString formats a report as "[key=value ...]".
func ReportString(report *orderedmap.OrderedMap[string, any]) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, key := range report.Keys() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		v, _ := report.Get(key)
		fmt.Fprintf(&sb, "%s=%v", key, v)
	}
	sb.WriteByte(']')
	return sb.String()
}
