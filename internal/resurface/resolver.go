// Package resurface resolves natural-language resurfacing expressions into
// absolute timestamps. Resolution is pure: all time-relative decisions derive
// from the referenceNow passed in, never from the wall clock.
package resurface

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Wall-clock anchors for day-part expressions, in the reference time's zone.
const (
	MorningHour   = 9
	AfternoonHour = 14
	EveningHour   = 18
)

var (
	inDaysRe      = regexp.MustCompile(`in (\d+) days?`)
	inHoursRe     = regexp.MustCompile(`in (\d+) hours?`)
	beforeDeadRe  = regexp.MustCompile(`(\d+) days? before`)
	absoluteForms = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
)

// weekday names in time.Weekday order (Sunday == 0).
var weekdayNames = []string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

// Resolve converts expr into an absolute timestamp relative to referenceNow.
// An already-absolute timestamp is returned unchanged. Relative vocabulary is
// matched case-insensitively, first match wins, in this order: tomorrow
// morning/afternoon/evening, bare tomorrow, next week, "in N days",
// "in N hours", "N days before deadline" (anchorDeadline required), weekday
// names. Anything else falls back to tomorrow 09:00 with a diagnostic.
//
// Resolve never fails; a nil result means "no resurfacing scheduled" and is
// produced only for an empty expression.
func Resolve(expr string, referenceNow time.Time, anchorDeadline *time.Time) *time.Time {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}

	if ts, ok := ParseAbsolute(expr, referenceNow.Location()); ok {
		return &ts
	}

	lower := strings.ToLower(expr)

	switch {
	case strings.Contains(lower, "tomorrow morning"):
		return ptr(atHour(referenceNow.AddDate(0, 0, 1), MorningHour))
	case strings.Contains(lower, "tomorrow afternoon"):
		return ptr(atHour(referenceNow.AddDate(0, 0, 1), AfternoonHour))
	case strings.Contains(lower, "tomorrow evening"):
		return ptr(atHour(referenceNow.AddDate(0, 0, 1), EveningHour))
	case strings.Contains(lower, "tomorrow"):
		return ptr(atHour(referenceNow.AddDate(0, 0, 1), MorningHour))
	case strings.Contains(lower, "next week"):
		return ptr(atHour(referenceNow.AddDate(0, 0, 7), MorningHour))
	}

	if m := inDaysRe.FindStringSubmatch(lower); m != nil {
		days, _ := strconv.Atoi(m[1])
		return ptr(atHour(referenceNow.AddDate(0, 0, days), MorningHour))
	}

	if m := inHoursRe.FindStringSubmatch(lower); m != nil {
		hours, _ := strconv.Atoi(m[1])
		return ptr(referenceNow.Add(time.Duration(hours) * time.Hour))
	}

	if anchorDeadline != nil {
		if m := beforeDeadRe.FindStringSubmatch(lower); m != nil && strings.Contains(lower, "deadline") {
			days, _ := strconv.Atoi(m[1])
			return ptr(atHour(anchorDeadline.AddDate(0, 0, -days), MorningHour))
		}
	}

	for wd, name := range weekdayNames {
		if strings.Contains(lower, name) {
			return ptr(nextWeekday(referenceNow, time.Weekday(wd)))
		}
	}

	log.Debug().Str("expression", expr).Msg("Unrecognized resurface expression, defaulting to tomorrow morning")
	return ptr(atHour(referenceNow.AddDate(0, 0, 1), MorningHour))
}

// ScheduleForDeadline produces up to three candidate resurface points for a
// deadline: two days before at 09:00, the day of at 09:00, and two hours
// before. Candidates already in the past relative to now are excluded; the
// result is ascending.
func ScheduleForDeadline(deadline, now time.Time) []time.Time {
	candidates := []time.Time{
		atHour(deadline.AddDate(0, 0, -2), MorningHour),
		atHour(deadline, MorningHour),
		deadline.Add(-2 * time.Hour),
	}

	out := make([]time.Time, 0, len(candidates))
	for _, c := range candidates {
		if c.After(now) {
			out = append(out, c)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Before(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// ParseAbsolute tries the accepted absolute timestamp layouts. Layouts
// without a zone are interpreted in loc so day-part anchors stay on the
// user's wall clock.
func ParseAbsolute(expr string, loc *time.Location) (time.Time, bool) {
	for _, layout := range absoluteForms {
		if layout == time.RFC3339 {
			if ts, err := time.Parse(layout, expr); err == nil {
				return ts, true
			}
			continue
		}
		if ts, err := time.ParseInLocation(layout, expr, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// nextWeekday returns the next future occurrence of wd at 09:00. When now
// already falls on wd the result rolls forward a full week; "next occurrence"
// never returns the current day.
func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return atHour(now.AddDate(0, 0, days), MorningHour)
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

func ptr(t time.Time) *time.Time { return &t }
