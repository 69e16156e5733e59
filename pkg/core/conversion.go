package core

import "time"

// Conversion is one pass of the pipeline over a descriptor file.
type Conversion struct {
	ID      string
	Path    string
	Mode    string
	Sdk     string
	Changed bool
	Skipped bool
	Reason  string
	At      time.Time
}
