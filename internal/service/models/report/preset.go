package report

import (
	"errors"
	"fmt"
	"time"
)

// Preset is a named reporting window relative to now.
type Preset string

const (
	PresetToday      Preset = "today"
	PresetYesterday  Preset = "yesterday"
	PresetLast7Days  Preset = "last-7-days"
	daysInLast7Days         = 7
)

var ErrUnknownPreset = errors.New("unknown report preset")

// ParsePreset converts a raw string into a Preset.
func ParsePreset(s string) (Preset, error) {
	switch Preset(s) {
	case PresetToday, PresetYesterday, PresetLast7Days:
		return Preset(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPreset, s)
	}
}

// Window returns [start, end) of the preset in loc. Day boundaries are local midnights.
func (p Preset) Window(now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch p {
	case PresetToday:
		return midnight, midnight.AddDate(0, 0, 1), nil
	case PresetYesterday:
		return midnight.AddDate(0, 0, -1), midnight, nil
	case PresetLast7Days:
		return midnight.AddDate(0, 0, 1-daysInLast7Days), midnight.AddDate(0, 0, 1), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPreset, string(p))
	}
}
