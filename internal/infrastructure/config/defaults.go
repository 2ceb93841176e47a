package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultChunkSize       = 58
	DefaultRequestDelay    = 1050 * time.Millisecond
	DefaultChunkWait       = 60 * time.Second
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
)
