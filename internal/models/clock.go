package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay bounds ClockTime values.
const MinutesPerDay = 24 * 60

var (
	// ErrInvalidClockTime is returned for strings that are not HH:MM wall-clock values.
	ErrInvalidClockTime = errors.New("time must be HH:MM in 24-hour format")
	// ErrPastMidnight is returned when a session would end on the following day.
	ErrPastMidnight = errors.New("session must end before midnight")
	// ErrInvalidDuration is returned for non-positive session lengths.
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")
)

// ClockTime is a minute-resolution wall-clock value counted from midnight.
type ClockTime int

// NewClockTime builds a ClockTime from hour and minute components.
func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, ErrInvalidClockTime
	}
	return ClockTime(hour*60 + minute), nil
}

// MustClockTime parses value and panics on failure. Intended for constants and tests.
func MustClockTime(value string) ClockTime {
	t, err := ParseClockTime(value)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseClockTime parses an HH:MM string. A single-digit hour is accepted.
func ParseClockTime(value string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 || len(parts[1]) != 2 || parts[0] == "" || len(parts[0]) > 2 || !digitsOnly(parts[0]) || !digitsOnly(parts[1]) {
		return 0, fmt.Errorf("%q: %w", value, ErrInvalidClockTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%q: %w", value, ErrInvalidClockTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%q: %w", value, ErrInvalidClockTime)
	}
	t, err := NewClockTime(hour, minute)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", value, err)
	}
	return t, nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// EndTime adds durationMinutes to start. Sessions may not run past midnight.
func EndTime(start ClockTime, durationMinutes int) (ClockTime, error) {
	if durationMinutes <= 0 {
		return 0, ErrInvalidDuration
	}
	end := int(start) + durationMinutes
	if end >= MinutesPerDay {
		return 0, fmt.Errorf("%s + %dm: %w", start, durationMinutes, ErrPastMidnight)
	}
	return ClockTime(end), nil
}

// Hour returns the hour component.
func (t ClockTime) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t ClockTime) Minute() int { return int(t) % 60 }

// String formats the value as HH:MM.
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText implements encoding.TextMarshaler.
func (t ClockTime) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ClockTime) UnmarshalText(data []byte) error {
	parsed, err := ParseClockTime(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON encodes the value as a quoted HH:MM string.
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a quoted HH:MM string.
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidClockTime
	}
	return t.UnmarshalText([]byte(raw))
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd ClockTime) bool {
	return aStart < bEnd && aEnd > bStart
}
