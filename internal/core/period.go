package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Today     PeriodTag = "today"
	ThisWeek  PeriodTag = "this week"
	ThisMonth PeriodTag = "this month"
)

type (
	PeriodTag string

	// Period is the half-open interval [Start, End).
	Period struct {
		Tag   PeriodTag
		Start time.Time
		End   time.Time
	}
)

var ErrUnknownPeriod = errors.New("unknown period")

var periodAliases = map[string]PeriodTag{
	"today":      Today,
	"this week":  ThisWeek,
	"this month": ThisMonth,
	"今日":         Today,
	"今週":         ThisWeek,
	"今月":         ThisMonth,
}

// ParsePeriodTag maps user text to a period tag. Matching ignores case and
// surrounding whitespace. Unrecognized text returns ErrUnknownPeriod.
func ParsePeriodTag(text string) (PeriodTag, error) {
	key := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if tag, ok := periodAliases[key]; ok {
		return tag, nil
	}
	return "", ErrUnknownPeriod
}

// Label returns a short display name for the tag.
func (t PeriodTag) Label() string {
	switch t {
	case Today:
		return "今日"
	case ThisWeek:
		return "今週"
	case ThisMonth:
		return "今月"
	default:
		return string(t)
	}
}

// ResolvePeriod computes the interval for tag relative to now, in loc.
func ResolvePeriod(tag PeriodTag, now time.Time, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	var start, end time.Time
	switch tag {
	case Today:
		start = StartOfDay(now)
		end = start.AddDate(0, 0, 1)
	case ThisWeek:
		start = StartOfWeek(now)
		end = start.AddDate(0, 0, 7)
	case ThisMonth:
		start = StartOfMonth(now)
		end = start.AddDate(0, 1, 0)
	default:
		return Period{}, ErrUnknownPeriod
	}
	return Period{Tag: tag, Start: start, End: end}, nil
}

// Contains reports whether t lies in [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns Monday 00:00 of the week containing t.
// Go's Weekday() numbers Sunday as 0, so Sunday is treated as day 7.
func StartOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return StartOfDay(t).AddDate(0, 0, -(weekday - 1))
}

// StartOfMonth returns the first day of t's month at 00:00.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
