package store

import (
	"context"
	"time"

	"attendancewizard/internal/model"
)

// LoadSettings reads the singleton row, inserting the default on first read.
func (d *DB) LoadSettings(ctx context.Context, now time.Time) (model.Settings, error) {
	if _, err := d.Client.ExecContext(ctx, `
		INSERT INTO admin_settings (id, disable_time_restrictions, updated_at)
		VALUES (1, FALSE, $1)
		ON CONFLICT (id) DO NOTHING
	`, now.UTC()); err != nil {
		return model.Settings{}, err
	}
	var s model.Settings
	err := d.Client.QueryRowContext(ctx, `
		SELECT disable_time_restrictions, updated_at FROM admin_settings WHERE id = 1
	`).Scan(&s.DisableTimeRestrictions, &s.UpdatedAt)
	return s, err
}

// SaveSettings overwrites the singleton row.
func (d *DB) SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error) {
	_, err := d.Client.ExecContext(ctx, `
		INSERT INTO admin_settings (id, disable_time_restrictions, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			disable_time_restrictions = EXCLUDED.disable_time_restrictions,
			updated_at = EXCLUDED.updated_at
	`, s.DisableTimeRestrictions, s.UpdatedAt.UTC())
	if err != nil {
		return model.Settings{}, err
	}
	return s, nil
}
