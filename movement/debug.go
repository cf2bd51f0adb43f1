package movement

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/oomph-ac/locomotion/internal"
)

// DebugMode is a bit flag selecting a category of per-tick trace output.
type DebugMode uint32

const (
	DebugModeFloor DebugMode = 1 << iota
	DebugModeStep
	DebugModeWalking
	DebugModeFalling
	DebugModeNetwork
	DebugModeMantle
	DebugModeRagdoll
)

var debugModeNames = map[string]DebugMode{
	"floor":   DebugModeFloor,
	"step":    DebugModeStep,
	"walking": DebugModeWalking,
	"falling": DebugModeFalling,
	"network": DebugModeNetwork,
	"mantle":  DebugModeMantle,
	"ragdoll": DebugModeRagdoll,
}

// ParseDebugMode returns the debug mode with the given name.
func ParseDebugMode(name string) (DebugMode, bool) {
	mode, ok := debugModeNames[strings.ToLower(strings.TrimSpace(name))]
	return mode, ok
}

// String ...
func (m DebugMode) String() string {
	var names []string
	for name, mode := range debugModeNames {
		if m&mode != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	slices.Sort(names)
	return strings.Join(names, "|")
}

// Debugger routes trace output of enabled modes to a logger. A nil Debugger discards everything.
type Debugger struct {
	modes DebugMode
	log   *slog.Logger
}

// NewDebugger returns a debugger logging to log with the given modes enabled.
func NewDebugger(log *slog.Logger, modes ...DebugMode) *Debugger {
	if log == nil {
		log = slog.Default()
	}
	d := &Debugger{log: log}
	for _, m := range modes {
		d.modes |= m
	}
	return d
}

// Toggle flips the given mode on or off.
func (d *Debugger) Toggle(mode DebugMode) {
	d.modes ^= mode
}

// Enabled reports whether any of the bits of mode are enabled.
func (d *Debugger) Enabled(mode DebugMode) bool {
	return d != nil && d.modes&mode != 0
}

// Notify logs the formatted message if mode is enabled and cond holds.
func (d *Debugger) Notify(mode DebugMode, cond bool, format string, args ...any) {
	if !cond || !d.Enabled(mode) {
		return
	}
	buf := internal.GetBuffer()
	defer internal.PutBuffer(buf)
	fmt.Fprintf(buf, format, args...)
	d.log.Debug(buf.String(), "debug_mode", mode.String())
}
