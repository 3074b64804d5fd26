package recurrence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/neuronotes/internal/recurrence"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

func TestOccurrences(t *testing.T) {
	tests := []struct {
		name     string
		event    types.CalendarEvent
		from, to string
		want     []string
	}{
		{
			name:  "weekly skips exception",
			event: types.CalendarEvent{Date: "2024-01-01", Repeat: types.RepeatWeekly, Exceptions: []string{"2024-01-15"}},
			from:  "2024-01-01", to: "2024-01-31",
			want: []string{"2024-01-01", "2024-01-08", "2024-01-22", "2024-01-29"},
		},
		{
			name:  "single event in range",
			event: types.CalendarEvent{Date: "2024-02-10", Repeat: types.RepeatNone},
			from:  "2024-02-01", to: "2024-02-29",
			want: []string{"2024-02-10"},
		},
		{
			name:  "single event out of range",
			event: types.CalendarEvent{Date: "2024-02-10"},
			from:  "2024-03-01", to: "2024-03-31",
			want: nil,
		},
		{
			name:  "daily bounded by repeat end",
			event: types.CalendarEvent{Date: "2024-01-30", Repeat: types.RepeatDaily, RepeatEnd: "2024-02-02"},
			from:  "2024-01-01", to: "2024-12-31",
			want: []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"},
		},
		{
			name:  "daily window after anchor",
			event: types.CalendarEvent{Date: "2023-12-01", Repeat: types.RepeatDaily},
			from:  "2024-01-01", to: "2024-01-03",
			want: []string{"2024-01-01", "2024-01-02", "2024-01-03"},
		},
		{
			name:  "monthly skips short months",
			event: types.CalendarEvent{Date: "2024-01-31", Repeat: types.RepeatMonthly},
			from:  "2024-01-01", to: "2024-06-30",
			want: []string{"2024-01-31", "2024-03-31", "2024-05-31"},
		},
		{
			name:  "yearly leap day",
			event: types.CalendarEvent{Date: "2024-02-29", Repeat: types.RepeatYearly},
			from:  "2024-01-01", to: "2032-12-31",
			want: []string{"2024-02-29", "2028-02-29", "2032-02-29"},
		},
		{
			name:  "custom weekdays",
			event: types.CalendarEvent{Date: "2024-01-01", Repeat: types.RepeatCustom, RepeatOn: []int{3, 7}},
			from:  "2024-01-01", to: "2024-01-14",
			want: []string{"2024-01-01", "2024-01-03", "2024-01-07", "2024-01-10", "2024-01-14"},
		},
		{
			name:  "custom without weekdays",
			event: types.CalendarEvent{Date: "2024-01-01", Repeat: types.RepeatCustom},
			from:  "2024-01-01", to: "2024-01-31",
			want: []string{"2024-01-01"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := recurrence.Occurrences(&tt.event, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOccursOn_Exception(t *testing.T) {
	e := &types.CalendarEvent{Date: "2024-01-01", Repeat: types.RepeatWeekly, Exceptions: []string{"2024-01-15"}}
	for date, want := range map[string]bool{
		"2024-01-08": true,
		"2024-01-15": false,
		"2024-01-22": true,
		"2024-01-09": false,
	} {
		got, err := recurrence.OccursOn(e, date)
		require.NoError(t, err)
		assert.Equal(t, want, got, date)
	}
}

func TestOccurrences_Errors(t *testing.T) {
	tests := []struct {
		name  string
		event types.CalendarEvent
		want  error
	}{
		{"bad anchor", types.CalendarEvent{Date: "01/01/2024"}, types.ErrInvalidDate},
		{"bad repeat", types.CalendarEvent{Date: "2024-01-01", Repeat: "hourly"}, types.ErrInvalidRepeat},
		{"bad weekday", types.CalendarEvent{Date: "2024-01-01", Repeat: types.RepeatCustom, RepeatOn: []int{0}}, types.ErrInvalidRepeat},
		{"bad end", types.CalendarEvent{Date: "2024-01-01", RepeatEnd: "soon"}, types.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := recurrence.Occurrences(&tt.event, "2024-01-01", "2024-12-31")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
