package bookings

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

const parseOp = "bookings.parse_datetime"

var (
	relativeRe  = regexp.MustCompile(`\bin\s+(\d+|an|one|two|three|four|five|six)\s+(hours?|hrs?|minutes?|mins?)\b`)
	isoDateRe   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	dayWordRe   = regexp.MustCompile(`\b(today|tonight|tomorrow|tmrw)\b`)
	weekdayRe   = regexp.MustCompile(`(?:^|[^\w'])(?:(next|this)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tues|tue|weds|wed|thurs|thur|thu|fri)\b`)
	clock12Re   = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\s*(am\b|pm\b|a\.m\.|p\.m\.)`)
	clock24Re   = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	namedTimeRe = regexp.MustCompile(`\b(noon|midday|midnight)\b`)
	bareHourRe  = regexp.MustCompile(`\bat\s+(\d{1,2})\b`)
	morningRe   = regexp.MustCompile(`\b(morning)\b`)
	eveningRe   = regexp.MustCompile(`\b(afternoon|evening|tonight)\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tues":      time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"weds":      time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thurs":     time.Thursday,
	"thur":      time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

type clock struct {
	hour   int
	minute int
}

// ParseDateTime finds the single day and time a lead asked for in free text,
// evaluated in loc. It accepts RFC 3339 timestamps, "in N hours/minutes",
// and a day (today, tomorrow, a weekday, "next <weekday>", YYYY-MM-DD)
// combined with a time (2pm, 10:30am, 14:00, noon). Text without both a day
// and a time, text naming more than one of either, and times already past
// all fail with a Parse error; no part is ever defaulted.
func ParseDateTime(text string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	raw := strings.TrimSpace(text)
	if raw == "" {
		return time.Time{}, apperr.Parse(parseOp, "no date or time given")
	}

	if t, ok := findTimestamp(raw, loc); ok {
		return inFuture(t.In(loc), now)
	}

	lower := strings.ToLower(raw)
	if d, ok := findRelative(lower); ok {
		return now.Add(d).Truncate(time.Minute), nil
	}

	c, hasClock, err := findClock(lower)
	if err != nil {
		return time.Time{}, err
	}
	hasDay := isoDateRe.MatchString(lower) || dayWordRe.MatchString(lower) || weekdayRe.MatchString(lower)
	switch {
	case !hasDay && !hasClock:
		return time.Time{}, apperr.Parse(parseOp, "no date or time given")
	case !hasClock:
		return time.Time{}, apperr.Parse(parseOp, "no time given")
	case !hasDay:
		return time.Time{}, apperr.Parse(parseOp, "no day given")
	}

	day, err := findDay(lower, now, c, loc)
	if err != nil {
		return time.Time{}, err
	}
	return inFuture(time.Date(day.year, day.month, day.day, c.hour, c.minute, 0, 0, loc), now)
}

// HasDateTimeHint reports whether text mentions any day or time, complete
// or not.
func HasDateTimeHint(text string) bool {
	raw := strings.TrimSpace(text)
	if _, ok := findTimestamp(raw, time.UTC); ok {
		return true
	}
	lower := strings.ToLower(raw)
	return relativeRe.MatchString(lower) ||
		isoDateRe.MatchString(lower) ||
		dayWordRe.MatchString(lower) ||
		weekdayRe.MatchString(lower) ||
		clock12Re.MatchString(lower) ||
		clock24Re.MatchString(lower) ||
		namedTimeRe.MatchString(lower) ||
		bareHourRe.MatchString(lower)
}

func inFuture(t, now time.Time) (time.Time, error) {
	if !t.After(now) {
		return time.Time{}, apperr.Parse(parseOp, "that time has already passed")
	}
	return t, nil
}

func findTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	for _, field := range strings.Fields(raw) {
		field = strings.TrimRight(field, ".,!?;")
		for _, layout := range timestampLayouts {
			var (
				t   time.Time
				err error
			)
			if layout == time.RFC3339 {
				t, err = time.Parse(layout, field)
			} else {
				t, err = time.ParseInLocation(layout, field, loc)
			}
			if err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func findRelative(lower string) (time.Duration, bool) {
	m := relativeRe.FindStringSubmatch(lower)
	if m == nil {
		return 0, false
	}
	n, ok := wordNumber(m[1])
	if !ok || n <= 0 {
		return 0, false
	}
	unit := time.Minute
	if strings.HasPrefix(m[2], "h") {
		unit = time.Hour
	}
	return time.Duration(n) * unit, true
}

func wordNumber(s string) (int, bool) {
	switch s {
	case "an", "one":
		return 1, true
	case "two":
		return 2, true
	case "three":
		return 3, true
	case "four":
		return 4, true
	case "five":
		return 5, true
	case "six":
		return 6, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func findClock(lower string) (clock, bool, error) {
	var found []clock
	rest := lower

	for _, loc := range clock12Re.FindAllStringSubmatchIndex(lower, -1) {
		hour, _ := strconv.Atoi(lower[loc[2]:loc[3]])
		minute := 0
		if loc[4] >= 0 {
			minute, _ = strconv.Atoi(lower[loc[4]:loc[5]])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return clock{}, false, apperr.Parse(parseOp, "invalid time of day")
		}
		pm := strings.HasPrefix(lower[loc[6]:loc[7]], "p")
		switch {
		case pm && hour < 12:
			hour += 12
		case !pm && hour == 12:
			hour = 0
		}
		found = append(found, clock{hour: hour, minute: minute})
		rest = rest[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + rest[loc[1]:]
	}

	// 14:00 and 09:00 are unambiguous; 3:30 is not.
	for _, m := range clock24Re.FindAllStringSubmatch(rest, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if (hour >= 1 && hour <= 9 && len(m[1]) == 1) || (hour >= 10 && hour <= 12) {
			var err error
			if hour, err = dayPeriodHour(hour, lower); err != nil {
				return clock{}, false, err
			}
		}
		found = append(found, clock{hour: hour, minute: minute})
	}

	for _, m := range namedTimeRe.FindAllStringSubmatch(rest, -1) {
		if m[1] == "midnight" {
			found = append(found, clock{hour: 0})
		} else {
			found = append(found, clock{hour: 12})
		}
	}

	if len(found) == 0 {
		m := bareHourRe.FindStringSubmatch(rest)
		if m == nil {
			return clock{}, false, nil
		}
		hour, _ := strconv.Atoi(m[1])
		switch {
		case hour >= 13 && hour <= 23:
		case hour >= 1 && hour <= 12:
			var err error
			if hour, err = dayPeriodHour(hour, lower); err != nil {
				return clock{}, false, err
			}
		default:
			return clock{}, false, apperr.Parse(parseOp, "invalid time of day")
		}
		return clock{hour: hour}, true, nil
	}

	first := found[0]
	for _, c := range found[1:] {
		if c != first {
			return clock{}, false, apperr.Parse(parseOp, "more than one time mentioned")
		}
	}
	return first, true, nil
}

// dayPeriodHour converts a 1-12 hour written without am/pm using the
// morning/afternoon wording around it, and refuses to guess without one.
func dayPeriodHour(hour int, lower string) (int, error) {
	switch {
	case eveningRe.MatchString(lower):
		if hour < 12 {
			hour += 12
		}
	case morningRe.MatchString(lower):
		if hour == 12 {
			hour = 0
		}
	default:
		return 0, apperr.Parse(parseOp, "time needs am or pm")
	}
	return hour, nil
}

// findDay resolves every day reference and requires them to agree. A plain
// weekday naming today means today while c is still ahead, otherwise next
// week; "next <weekday>" is always after today.
func findDay(lower string, now time.Time, c clock, loc *time.Location) (civilDate, error) {
	var found []civilDate
	add := func(t time.Time) {
		found = append(found, civilDate{year: t.Year(), month: t.Month(), day: t.Day()})
	}

	for _, m := range isoDateRe.FindAllStringSubmatch(lower, -1) {
		t, err := time.ParseInLocation("2006-01-02", m[1], loc)
		if err != nil {
			return civilDate{}, apperr.Parse(parseOp, "invalid date")
		}
		add(t)
	}
	for _, m := range dayWordRe.FindAllStringSubmatch(lower, -1) {
		switch m[1] {
		case "today", "tonight":
			add(now)
		default:
			add(now.AddDate(0, 0, 1))
		}
	}
	for _, m := range weekdayRe.FindAllStringSubmatch(lower, -1) {
		wd := weekdays[m[2]]
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			sameDay := time.Date(now.Year(), now.Month(), now.Day(), c.hour, c.minute, 0, 0, loc)
			if m[1] == "next" || !sameDay.After(now) {
				ahead = 7
			}
		}
		add(now.AddDate(0, 0, ahead))
	}

	first := found[0]
	for _, d := range found[1:] {
		if d != first {
			return civilDate{}, apperr.Parse(parseOp, "more than one day mentioned")
		}
	}
	return first, nil
}
