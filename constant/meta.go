// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Kara is the canonical application identifier used for filesystem paths and CLI branding.
	Kara = "kara"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// UserAgent is the HTTP User-Agent string sent with remote media probes.
	UserAgent = "kara/" + Version
)

// Build metadata, overridden through -ldflags at release time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

// Instance names of the two player outputs.
const (
	MainPlayer    = "main"
	MonitorPlayer = "monitor"
)

// AudienceLogin is the pseudo participant used for aggregated audience answers.
const AudienceLogin = "audience"
