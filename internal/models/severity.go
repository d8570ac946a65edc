package models

import (
	"fmt"
	"strings"
)

// Severity is an ordered risk level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists all severities from lowest to highest.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the position of s in Severities, or -1 if s is unknown.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool { return s.Rank() >= 0 }

// AtLeast reports whether s is at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Valid() && other.Valid() && s.Rank() >= other.Rank()
}

// ParseSeverity converts a case-insensitive string into a Severity.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q", v)
	}
	return s, nil
}

// EscalationMatrix routes a severity to an ordered role list. The first role is
// the primary owner, the rest are informed or backup.
type EscalationMatrix map[Severity][]Role

// Clone returns a deep copy of m.
func (m EscalationMatrix) Clone() EscalationMatrix {
	if m == nil {
		return nil
	}
	out := make(EscalationMatrix, len(m))
	for k, v := range m {
		out[k] = append([]Role(nil), v...)
	}
	return out
}
