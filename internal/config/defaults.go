package config

import "time"

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Defaults applied to fields left empty in the configuration
const (
	DefaultOutPath = "./"
	DefaultTimeout = 5 * time.Second
	DefaultWorkers = 16
)
