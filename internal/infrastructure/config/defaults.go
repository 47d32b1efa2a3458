package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSelectionBuffer = 64
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
	DefaultSQLiteBusyMS    = 5000
	DefaultMaxBodyBytes    = 1 << 20
	DefaultImportBodyBytes = 8 << 20
	// DefaultMaxSelectionLine bounds one stdin line of the selections worker.
	DefaultMaxSelectionLine = 1 << 20
)
