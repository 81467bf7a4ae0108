package domain

import "fmt"

// Status is the tri-state subscription flag. The zero value is StatusUnknown.
type Status int

const (
	// StatusUnknown means purchases have not been loaded yet.
	StatusUnknown Status = iota
	// StatusSubscribed means an active purchase was confirmed.
	StatusSubscribed
	// StatusNotSubscribed means purchases were loaded and none is active.
	StatusNotSubscribed
)

// StatusFromBool maps a definite subscribed flag onto the tri-state.
func StatusFromBool(subscribed bool) Status {
	if subscribed {
		return StatusSubscribed
	}
	return StatusNotSubscribed
}

// Known reports whether the status is definite.
func (s Status) Known() bool {
	return s == StatusSubscribed || s == StatusNotSubscribed
}

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusSubscribed:
		return "subscribed"
	case StatusNotSubscribed:
		return "not_subscribed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "subscribed":
		*s = StatusSubscribed
	case "not_subscribed":
		*s = StatusNotSubscribed
	case "unknown", "":
		*s = StatusUnknown
	default:
		return fmt.Errorf("invalid subscription status %q", string(text))
	}
	return nil
}
