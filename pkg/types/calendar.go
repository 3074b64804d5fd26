package types

import "time"

// DateLayout is the calendar date format: a local date without timezone.
const DateLayout = "2006-01-02"

// Repeat rules.
const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
	RepeatYearly  = "yearly"
	RepeatCustom  = "custom"
)

var validRepeats = map[string]bool{
	RepeatNone:    true,
	RepeatDaily:   true,
	RepeatWeekly:  true,
	RepeatMonthly: true,
	RepeatYearly:  true,
	RepeatCustom:  true,
}

// ValidRepeat reports whether r is a known repeat rule.
func ValidRepeat(r string) bool {
	return validRepeats[r]
}

// CalendarEvent is an event anchored at Date that may recur. RepeatOn holds
// ISO weekday numbers (1=Mon..7=Sun) and only applies to RepeatCustom.
// Exceptions lists instance dates that were deleted from the series.
type CalendarEvent struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"`
	Title       string   `json:"title"`
	Time        string   `json:"time,omitempty"`
	WorkspaceID string   `json:"workspaceId"`
	Repeat      string   `json:"repeat"`
	RepeatOn    []int    `json:"repeatOn,omitempty"`
	RepeatEnd   string   `json:"repeatEnd,omitempty"`
	Exceptions  []string `json:"exceptions,omitempty"`
	Color       string   `json:"color,omitempty"`
	UpdatedAt   int64    `json:"updatedAt,omitempty"`
}

func (e *CalendarEvent) PrimaryKey() string { return e.ID }
func (e *CalendarEvent) Stamp() int64       { return e.UpdatedAt }

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
