package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // venue zones resolve without host zoneinfo
)

// VenueConfig describes the venue's service hours in its own calendar.
// Opening and Closing are offsets from local midnight.
type VenueConfig struct {
	Location       *time.Location // venue timezone
	Opening        time.Duration  // first bookable slot, e.g. 17h
	Closing        time.Duration  // no slot starts at or after this offset
	SlotInterval   time.Duration  // grid step
	DiningDuration time.Duration  // average table time; default claim length
}

// LoadVenueConfig reads VENUE_* plus SLOT_INTERVAL and DINING_DURATION.
// Unlike the other loaders it reports bad values instead of falling back,
// because a wrong grid silently produces wrong availability.
func LoadVenueConfig() (VenueConfig, error) {
	tz := envStr("VENUE_TIMEZONE", "Pacific/Guam")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return VenueConfig{}, fmt.Errorf("VENUE_TIMEZONE %q: %w", tz, err)
	}
	opening, err := ParseClock(envStr("VENUE_OPENING_TIME", "17:00"))
	if err != nil {
		return VenueConfig{}, fmt.Errorf("VENUE_OPENING_TIME: %w", err)
	}
	closing, err := ParseClock(envStr("VENUE_CLOSING_TIME", "21:00"))
	if err != nil {
		return VenueConfig{}, fmt.Errorf("VENUE_CLOSING_TIME: %w", err)
	}
	slot, err := durVar("SLOT_INTERVAL", 30*time.Minute)
	if err != nil {
		return VenueConfig{}, err
	}
	dining, err := durVar("DINING_DURATION", 60*time.Minute)
	if err != nil {
		return VenueConfig{}, err
	}
	v := VenueConfig{Location: loc, Opening: opening, Closing: closing, SlotInterval: slot, DiningDuration: dining}
	return v, v.Validate()
}

// Validate checks that the grid is non-empty and the durations positive.
func (v VenueConfig) Validate() error {
	if v.Location == nil {
		return fmt.Errorf("venue timezone is not set")
	}
	if v.Closing <= v.Opening {
		return fmt.Errorf("closing time must be after opening time")
	}
	if v.SlotInterval <= 0 {
		return fmt.Errorf("slot interval must be positive")
	}
	if v.DiningDuration <= 0 {
		return fmt.Errorf("dining duration must be positive")
	}
	return nil
}

// ParseClock turns "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func durVar(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
