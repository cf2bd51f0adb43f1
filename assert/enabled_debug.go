//go:build debug

package assert

// Enabled is true for builds tagged debug.
const Enabled = true
