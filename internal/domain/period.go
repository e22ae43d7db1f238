package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period selects the grouping granularity of an owner breakdown.
type Period string

const (
	PeriodTotal Period = "total"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name; empty means total.
func ParsePeriod(raw string) (Period, bool) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PeriodTotal:
		return PeriodTotal, true
	case PeriodDay:
		return PeriodDay, true
	case PeriodWeek:
		return PeriodWeek, true
	case PeriodMonth:
		return PeriodMonth, true
	}
	return "", false
}

const dayLayout = "2006-01-02"

// CalendarDay returns the civil date of t in loc, represented as midnight UTC.
// Ledger dates use this representation so they compare and store unambiguously.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD calendar date.
func ParseDay(raw string) (time.Time, error) {
	return time.Parse(dayLayout, strings.TrimSpace(raw))
}

// FormatDay renders a calendar date as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return day.Format(dayLayout)
}

// DayBounds returns the instants [start, end) covering a calendar day in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// PeriodKey identifies one bucket of a day/week/month grouping.
type PeriodKey struct {
	Period Period
	Year   int
	// Index is the day of year for days, the ISO week for weeks and the
	// month number for months.
	Index int
	// Day keeps the calendar date for day keys.
	Day time.Time
}

// PeriodKeyOf buckets an instant in loc.
func PeriodKeyOf(t time.Time, period Period, loc *time.Location) PeriodKey {
	local := t.In(loc)
	switch period {
	case PeriodWeek:
		year, week := local.ISOWeek()
		return PeriodKey{Period: period, Year: year, Index: week}
	case PeriodMonth:
		return PeriodKey{Period: period, Year: local.Year(), Index: int(local.Month())}
	default:
		day := CalendarDay(t, loc)
		return PeriodKey{Period: PeriodDay, Year: day.Year(), Index: day.YearDay(), Day: day}
	}
}

// String renders 2024-01-05, 2024-W03 or 2024-01.
func (k PeriodKey) String() string {
	switch k.Period {
	case PeriodWeek:
		return fmt.Sprintf("%04d-W%02d", k.Year, k.Index)
	case PeriodMonth:
		return fmt.Sprintf("%04d-%02d", k.Year, k.Index)
	default:
		return FormatDay(k.Day)
	}
}

// Before orders keys chronologically.
func (k PeriodKey) Before(other PeriodKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Index < other.Index
}

// Bounds returns the instants [start, end) covered by the key in loc.
func (k PeriodKey) Bounds(loc *time.Location) (time.Time, time.Time) {
	switch k.Period {
	case PeriodWeek:
		start := isoWeekStart(k.Year, k.Index, loc)
		return start, start.AddDate(0, 0, 7)
	case PeriodMonth:
		start := time.Date(k.Year, time.Month(k.Index), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	default:
		return DayBounds(k.Day, loc)
	}
}

// isoWeekStart returns the Monday that starts ISO week `week` of `year`.
// January 4th always falls in week 1.
func isoWeekStart(year, week int, loc *time.Location) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (week-1)*7)
}

// ParsePeriodKey parses the String form of a key for the given period.
func ParsePeriodKey(period Period, raw string) (PeriodKey, error) {
	raw = strings.TrimSpace(raw)
	switch period {
	case PeriodDay:
		day, err := ParseDay(raw)
		if err != nil {
			return PeriodKey{}, fmt.Errorf("invalid day key %q", raw)
		}
		return PeriodKey{Period: PeriodDay, Year: day.Year(), Index: day.YearDay(), Day: day}, nil
	case PeriodWeek:
		yearPart, weekPart, ok := strings.Cut(raw, "-W")
		if !ok {
			return PeriodKey{}, fmt.Errorf("invalid week key %q", raw)
		}
		year, errYear := strconv.Atoi(yearPart)
		week, errWeek := strconv.Atoi(weekPart)
		if errYear != nil || errWeek != nil || week < 1 || week > 53 {
			return PeriodKey{}, fmt.Errorf("invalid week key %q", raw)
		}
		return PeriodKey{Period: PeriodWeek, Year: year, Index: week}, nil
	case PeriodMonth:
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			return PeriodKey{}, fmt.Errorf("invalid month key %q", raw)
		}
		return PeriodKey{Period: PeriodMonth, Year: t.Year(), Index: int(t.Month())}, nil
	}
	return PeriodKey{}, fmt.Errorf("period %q has no keys", period)
}
