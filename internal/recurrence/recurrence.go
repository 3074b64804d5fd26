// Package recurrence expands a calendar event's repeat rule into the dates
// it occurs on.
package recurrence

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// maxOccurrences caps one expansion.
const maxOccurrences = 10000

// Occurrences returns the dates in [from, to] on which e occurs, in order.
// The anchor date is the first occurrence. RepeatEnd bounds the series
// inclusively and dates in Exceptions are skipped. Monthly series skip
// months that lack the anchor day; yearly series anchored on Feb 29 occur
// only in leap years.
func Occurrences(e *types.CalendarEvent, from, to string) ([]string, error) {
	anchor, err := parse("date", e.Date)
	if err != nil {
		return nil, err
	}
	lo, err := parse("from", from)
	if err != nil {
		return nil, err
	}
	hi, err := parse("to", to)
	if err != nil {
		return nil, err
	}
	if e.RepeatEnd != "" {
		end, err := parse("repeatEnd", e.RepeatEnd)
		if err != nil {
			return nil, err
		}
		if end.Before(hi) {
			hi = end
		}
	}

	skip := make(map[string]bool, len(e.Exceptions))
	for _, x := range e.Exceptions {
		skip[x] = true
	}

	next, err := stepper(e, anchor)
	if err != nil {
		return nil, err
	}
	var out []string
	for d := anchor; !d.After(hi) && len(out) < maxOccurrences; d = next(d) {
		if d.Before(lo) {
			continue
		}
		if s := d.Format(types.DateLayout); !skip[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

// OccursOn reports whether e occurs on date.
func OccursOn(e *types.CalendarEvent, date string) (bool, error) {
	got, err := Occurrences(e, date, date)
	return len(got) == 1, err
}

type step func(time.Time) time.Time

// stepper returns the function advancing one occurrence.
func stepper(e *types.CalendarEvent, anchor time.Time) (step, error) {
	switch e.Repeat {
	case "", types.RepeatNone:
		return once, nil
	case types.RepeatDaily:
		return func(d time.Time) time.Time { return d.AddDate(0, 0, 1) }, nil
	case types.RepeatWeekly:
		return func(d time.Time) time.Time { return d.AddDate(0, 0, 7) }, nil
	case types.RepeatMonthly:
		return func(d time.Time) time.Time {
			for i := 1; ; i++ {
				n := time.Date(d.Year(), d.Month()+time.Month(i), anchor.Day(), 0, 0, 0, 0, time.UTC)
				if n.Day() == anchor.Day() {
					return n
				}
			}
		}, nil
	case types.RepeatYearly:
		return func(d time.Time) time.Time {
			for i := 1; ; i++ {
				n := time.Date(d.Year()+i, anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
				if n.Day() == anchor.Day() {
					return n
				}
			}
		}, nil
	case types.RepeatCustom:
		days := map[time.Weekday]bool{}
		for _, iso := range e.RepeatOn {
			if iso < 1 || iso > 7 {
				return nil, fmt.Errorf("%w: weekday %d", types.ErrInvalidRepeat, iso)
			}
			days[time.Weekday(iso%7)] = true
		}
		if len(days) == 0 {
			// Without weekdays the series is the anchor alone.
			return once, nil
		}
		return func(d time.Time) time.Time {
			for {
				d = d.AddDate(0, 0, 1)
				if days[d.Weekday()] {
					return d
				}
			}
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrInvalidRepeat, e.Repeat)
}

// once steps past every parseable date so only the anchor is produced.
func once(time.Time) time.Time { return time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC) }

func parse(field, s string) (time.Time, error) {
	t, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q", types.ErrInvalidDate, field, s)
	}
	return t, nil
}
