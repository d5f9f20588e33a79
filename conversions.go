package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrOutOfRange     = errors.New("value out of range")
)

func stringSwitchToRaw(payload string) (int, bool) {
	switch strings.ToUpper(strings.TrimSpace(payload)) {
	case "ON":
		return 1, true
	case "OFF":
		return 0, true
	default:
		return 0, false
	}
}

func rawSwitchToString(value int) string {
	if value != 0 {
		return "ON"
	}
	return "OFF"
}

// stringLevelToRaw reads the leading decimal integer of payload, ignoring
// surrounding whitespace and anything after the digits ("3", " 3\n", "3.0"
// all read 3). A payload without digits is rejected.
func stringLevelToRaw(payload string) (int, bool) {
	s := strings.TrimSpace(payload)

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

// parsePayload converts an inbound payload for ch to the value a Job carries.
func parsePayload(ch *Channel, payload string) (int, error) {
	if ch.Kind == SwitchChannel {
		v, ok := stringSwitchToRaw(payload)
		if !ok {
			return 0, fmt.Errorf("%w: %s expects ON or OFF, got %q", ErrInvalidPayload, ch.Name, payload)
		}
		return v, nil
	}

	v, ok := stringLevelToRaw(payload)
	if !ok {
		return 0, fmt.Errorf("%w: %s expects a number, got %q", ErrInvalidPayload, ch.Name, payload)
	}
	if v < ch.Min || v > ch.Max {
		return 0, fmt.Errorf("%w: %s must be %d-%d, got %d", ErrOutOfRange, ch.Name, ch.Min, ch.Max, v)
	}
	return v, nil
}

// formatValue is the payload published on the stat topic.
func formatValue(ch *Channel, value int) string {
	if ch.Kind == SwitchChannel {
		return rawSwitchToString(value)
	}
	return strconv.Itoa(value)
}
