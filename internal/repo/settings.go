package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

const selectSettings = `SELECT key, value, updated_at FROM settings`

// Well-known setting keys. Per-workspace keys append ":<workspaceID>".
const (
	SettingActiveWorkspace   = "activeWorkspaceId"
	SettingSelectedNote      = "selectedNoteId"
	SettingUseCommonCalendar = "useCommonCalendar"
)

// WorkspaceKey scopes a setting name to a workspace.
func WorkspaceKey(name, workspaceID string) string {
	return name + ":" + workspaceID
}

func (r *Repository) GetAllSettings(ctx context.Context) ([]types.Setting, error) {
	rows, err := r.exec.Select(ctx, selectSettings+` ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("select settings: %w", err)
	}
	out := make([]types.Setting, 0, len(rows))
	for _, row := range rows {
		s, err := r.decodeSetting(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *Repository) GetSettingByID(ctx context.Context, key string) (*types.Setting, error) {
	if key == "" {
		return nil, types.ErrInvalidID
	}
	rows, err := r.exec.Select(ctx, selectSettings+` WHERE key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("select setting: %w", err)
	}
	if len(rows) == 0 {
		return nil, types.ErrNotFound
	}
	return r.decodeSetting(rows[0])
}

func (r *Repository) PutSetting(ctx context.Context, s *types.Setting) error {
	if err := validateSetting(s); err != nil {
		return err
	}
	s.UpdatedAt = r.clock.Next()
	if err := r.writeSetting(ctx, s); err != nil {
		return err
	}
	return r.unbury(ctx, types.StoreSettings, s.Key)
}

func validateSetting(s *types.Setting) error {
	if s == nil || s.Key == "" {
		return types.ErrInvalidData
	}
	if s.Value != nil && !json.Valid(s.Value) {
		return fmt.Errorf("%w: setting %q is not valid JSON", types.ErrInvalidData, s.Key)
	}
	return nil
}

func (r *Repository) writeSetting(ctx context.Context, s *types.Setting) error {
	var value any
	if s.Value != nil {
		value = string(s.Value)
	}
	_, err := r.exec.Execute(ctx, `INSERT INTO settings (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET
    value = excluded.value,
    updated_at = excluded.updated_at`,
		s.Key, value, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

func (r *Repository) DeleteSetting(ctx context.Context, key string) error {
	if key == "" {
		return types.ErrInvalidID
	}
	return r.removeWhere(ctx, types.StoreSettings, "key", key, true, r.clock.Next())
}

func (r *Repository) settingKeys(ctx context.Context) ([]string, error) {
	rows, err := r.exec.Select(ctx, `SELECT key FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("select setting keys: %w", err)
	}
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		rr := newReader(types.StoreSettings, row)
		keys = append(keys, rr.text("key"))
		if rr.err != nil {
			return nil, rr.err
		}
	}
	return keys, nil
}
