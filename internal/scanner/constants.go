package scanner

import "time"

const (
	// Default configuration values
	DefaultFetchTimeout = 10 * time.Second
	DefaultMaxBodySize  = 512 * 1024

	// Display limits
	PayloadDisplayLength = 70
	URLDisplayLength     = 80
)
