package io

import "fmt"

// Load failure causes
const (
	CauseNetwork  = "network"
	CauseDecode   = "decode"
	CauseNotFound = "notfound"
	CauseRead     = "read"
)

// LoadError describes why the source list could not be loaded
type LoadError struct {
	Source string
	Cause  string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (%s): %v", e.Source, e.Cause, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError describes a failure to persist results
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
