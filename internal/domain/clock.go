package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ClockTime is a local HH:MM time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// DefaultScheduleTime is the daily ledger time used when nothing is configured.
var DefaultScheduleTime = ClockTime{Hour: 23, Minute: 59}

// ParseClockTime parses "HH:MM".
func ParseClockTime(raw string) (ClockTime, error) {
	hourPart, minutePart, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("invalid schedule time %q: want HH:MM", raw)
	}
	hour, errHour := strconv.Atoi(hourPart)
	minute, errMinute := strconv.Atoi(minutePart)
	if errHour != nil || errMinute != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid schedule time %q: want HH:MM", raw)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MarshalText implements encoding.TextMarshaler.
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// CronSpec renders the daily five-field cron expression "M H * * *".
func (c ClockTime) CronSpec() string {
	return fmt.Sprintf("%d %d * * *", c.Minute, c.Hour)
}
