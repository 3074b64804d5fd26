package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

const (
	selectCalendarEvents = `SELECT id, date, title, time, workspace_id, repeat, repeat_on, repeat_end, exceptions, color, updated_at FROM calendarEvents`
	eventsOrder          = ` ORDER BY date, time, id`
)

// GetAllCalendarEvents lists events of workspaceID, or of every workspace
// when workspaceID is empty.
func (r *Repository) GetAllCalendarEvents(ctx context.Context, workspaceID string) ([]types.CalendarEvent, error) {
	return r.queryEvents(ctx, "workspace_id", workspaceID)
}

// GetCalendarEventsByDate lists events anchored at date.
func (r *Repository) GetCalendarEventsByDate(ctx context.Context, date string) ([]types.CalendarEvent, error) {
	if !types.ValidDate(date) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidDate, date)
	}
	return r.queryEvents(ctx, "date", date)
}

func (r *Repository) queryEvents(ctx context.Context, col, val string) ([]types.CalendarEvent, error) {
	q, args := selectCalendarEvents, []any(nil)
	if val != "" {
		q += ` WHERE ` + col + ` = $1`
		args = append(args, val)
	}
	rows, err := r.exec.Select(ctx, q+eventsOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("select calendar events: %w", err)
	}
	out := make([]types.CalendarEvent, 0, len(rows))
	for _, row := range rows {
		e, err := r.decodeCalendarEvent(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r *Repository) GetCalendarEventByID(ctx context.Context, id string) (*types.CalendarEvent, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	rows, err := r.exec.Select(ctx, selectCalendarEvents+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("select calendar event: %w", err)
	}
	if len(rows) == 0 {
		return nil, types.ErrNotFound
	}
	return r.decodeCalendarEvent(rows[0])
}

func (r *Repository) PutCalendarEvent(ctx context.Context, e *types.CalendarEvent) error {
	if err := normalizeEvent(e); err != nil {
		return err
	}
	e.UpdatedAt = r.clock.Next()
	if err := r.writeCalendarEvent(ctx, e); err != nil {
		return err
	}
	return r.unbury(ctx, types.StoreCalendarEvents, e.ID)
}

func normalizeEvent(e *types.CalendarEvent) error {
	if e == nil || e.WorkspaceID == "" {
		return types.ErrInvalidData
	}
	if !types.ValidDate(e.Date) {
		return fmt.Errorf("%w: %q", types.ErrInvalidDate, e.Date)
	}
	if e.RepeatEnd != "" && !types.ValidDate(e.RepeatEnd) {
		return fmt.Errorf("%w: repeat end %q", types.ErrInvalidDate, e.RepeatEnd)
	}
	if e.Repeat == "" {
		e.Repeat = types.RepeatNone
	}
	if !types.ValidRepeat(e.Repeat) {
		return fmt.Errorf("%w: %q", types.ErrInvalidRepeat, e.Repeat)
	}
	for _, d := range e.RepeatOn {
		if d < 1 || d > 7 {
			return fmt.Errorf("%w: weekday %d", types.ErrInvalidRepeat, d)
		}
	}
	e.RepeatOn = nilIfEmpty(e.RepeatOn)
	e.Exceptions = nilIfEmpty(e.Exceptions)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (r *Repository) writeCalendarEvent(ctx context.Context, e *types.CalendarEvent) error {
	repeatOn, err := encodeJSON(e.RepeatOn, e.RepeatOn == nil)
	if err != nil {
		return err
	}
	exceptions, err := encodeJSON(e.Exceptions, e.Exceptions == nil)
	if err != nil {
		return err
	}
	_, err = r.exec.Execute(ctx, `INSERT INTO calendarEvents (id, date, title, time, workspace_id, repeat, repeat_on, repeat_end, exceptions, color, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
    date = excluded.date,
    title = excluded.title,
    time = excluded.time,
    workspace_id = excluded.workspace_id,
    repeat = excluded.repeat,
    repeat_on = excluded.repeat_on,
    repeat_end = excluded.repeat_end,
    exceptions = excluded.exceptions,
    color = excluded.color,
    updated_at = excluded.updated_at`,
		e.ID, e.Date, e.Title, nullIfEmpty(e.Time), e.WorkspaceID, e.Repeat,
		repeatOn, nullIfEmpty(e.RepeatEnd), exceptions, nullIfEmpty(e.Color), e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert calendar event: %w", err)
	}
	return nil
}

func (r *Repository) DeleteCalendarEvent(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	return r.removeWhere(ctx, types.StoreCalendarEvents, "id", id, true, r.clock.Next())
}
