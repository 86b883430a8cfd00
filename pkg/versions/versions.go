// Package versions
package versions

var (
	// Version holds the MCS release version this orchestrator deploys and
	// tests. Set at compile time via ldflags; a dev build reports 0.0.0.
	Version = "0.0.0"
)
