// ABOUTME: Version constants for the studio binaries
// ABOUTME: Reported by the CLI and attached to telemetry resources
package version

const (
	Version      = "0.1.0"
	Product      = "Resonate Studio"
	Manufacturer = "Resonate"
)
