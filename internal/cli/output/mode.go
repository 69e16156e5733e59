// Package output renders command results as styled text, markdown or JSON.
package output

import "strings"

// OutputMode selects how results are rendered.
type OutputMode string

const (
	// ModeAuto renders text on a terminal and markdown otherwise.
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// Modes lists the accepted mode names.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}
}

// Mode parses a mode name. Unknown and empty names yield ModeAuto.
func Mode(s string) OutputMode {
	switch OutputMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeText:
		return ModeText
	case ModeMarkdown, "md":
		return ModeMarkdown
	case ModeJSON:
		return ModeJSON
	default:
		return ModeAuto
	}
}

// IsValidMode reports whether s names a mode.
func IsValidMode(s string) bool {
	switch OutputMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto, ModeText, ModeMarkdown, "md", ModeJSON:
		return true
	}
	return false
}
