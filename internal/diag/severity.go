package diag

import (
	"fmt"
	"strings"
)

// Severity classifies one compiler message.
type Severity uint8

const (
	// SevError is a fatal message; it fails the compilation.
	SevError Severity = iota
	// SevStrongWarning is a warning the compiler treats as close to an error.
	SevStrongWarning
	// SevWarning is an ordinary warning.
	SevWarning
	// SevInfo is an informational message.
	SevInfo
	// SevTrace is verbose compiler output.
	SevTrace
	// SevOther labels severities the model does not know.
	SevOther
)

func (s Severity) String() string {
	switch s {
	case SevError:
		return "ERROR"
	case SevStrongWarning:
		return "STRONG_WARNING"
	case SevWarning:
		return "WARNING"
	case SevInfo:
		return "INFO"
	case SevTrace:
		return "TRACE"
	case SevOther:
		return "OTHER"
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// IsFatal reports whether the severity fails a compilation.
func (s Severity) IsFatal() bool {
	return s == SevError
}

// ParseSeverity maps a severity word from an external compiler onto the
// model. Unknown words map to SevOther so no message class is ever dropped.
func ParseSeverity(word string) Severity {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "error", "e":
		return SevError
	case "strong warning", "strong_warning", "strong-warning":
		return SevStrongWarning
	case "warning", "w":
		return SevWarning
	case "info", "i":
		return SevInfo
	case "logging", "verbose", "trace", "v":
		return SevTrace
	}
	return SevOther
}
