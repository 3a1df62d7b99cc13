// Package violation turns rule breaches reported by packet handlers into
// punitive action against the offending connection.
package violation

import (
	"errors"
	"fmt"
)

// Level is the severity of a security incident.
type Level int

const (
	Mild Level = iota + 1
	Moderate
	Severe
)

func (l Level) String() string {
	switch l {
	case Mild:
		return "mild"
	case Moderate:
		return "moderate"
	case Severe:
		return "severe"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// SecurityViolation is returned by handlers when a client breaks a rule.
type SecurityViolation struct {
	Level Level
	Msg   string
}

func (v *SecurityViolation) Error() string {
	return fmt.Sprintf("security violation (%s): %s", v.Level, v.Msg)
}

// New returns a violation of the given level.
func New(level Level, format string, args ...any) error {
	return &SecurityViolation{Level: level, Msg: fmt.Sprintf(format, args...)}
}

// Severef returns a severe violation. Handlers use it for requests that only
// modified client software can produce: acting on entities that do not
// exist, elevated actions without authority, malformed payloads.
func Severef(format string, args ...any) error {
	return New(Severe, format, args...)
}

// As extracts the violation from err, if any.
func As(err error) (*SecurityViolation, bool) {
	var v *SecurityViolation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
