package adapters

import "context"

// SystemAdapter reports on the runtime the Backdrop site is served by.
type SystemAdapter interface {
	// PHPVersion returns the CLI PHP version as major.minor.patch, or "Unknown".
	PHPVersion(ctx context.Context) string
	// WebServer returns the name of a running web server process, if any.
	WebServer(ctx context.Context) (string, bool)
}

