package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sqliteSettingsRepository implements settingsRepository. The row is created by the database fixtures.
type sqliteSettingsRepository struct {
	baseRepository
}

const selectSettings = `
	SELECT use_epley, active_program_id, disclaimer_accepted, disclaimer_accepted_at,
	       rest_timer_enabled, rest_timer_auto_start, rest_timer_duration_sec, rest_timer_sound
	FROM settings
	WHERE id = 'settings'`

// Get retrieves the settings.
func (r *sqliteSettingsRepository) Get(ctx context.Context) (Settings, error) {
	return scanSettings(r.db.ReadOnly.QueryRowContext(ctx, selectSettings))
}

// Update applies updateFn to the settings and saves them if updateFn reports a change.
func (r *sqliteSettingsRepository) Update(ctx context.Context, updateFn func(s *Settings) (bool, error)) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		s, err := scanSettings(tx.QueryRowContext(ctx, selectSettings))
		if err != nil {
			return err
		}
		updated, err := updateFn(&s)
		if err != nil {
			return fmt.Errorf("update function: %w", err)
		}
		if !updated {
			return nil
		}
		activeProgramID := sql.NullString{String: s.ActiveProgramID, Valid: s.ActiveProgramID != ""}
		if _, err = tx.ExecContext(ctx, `
			UPDATE settings
			SET use_epley               = ?,
			    active_program_id       = ?,
			    disclaimer_accepted     = ?,
			    disclaimer_accepted_at  = ?,
			    rest_timer_enabled      = ?,
			    rest_timer_auto_start   = ?,
			    rest_timer_duration_sec = ?,
			    rest_timer_sound        = ?
			WHERE id = 'settings'`,
			s.UseEpley, activeProgramID, s.DisclaimerAccepted, formatNullTimestamp(s.DisclaimerAcceptedAt),
			s.RestTimer.Enabled, s.RestTimer.AutoStart, s.RestTimer.DurationSec, s.RestTimer.Sound); err != nil {
			return fmt.Errorf("update settings: %w", err)
		}
		return nil
	})
}

func scanSettings(row rowScanner) (Settings, error) {
	var (
		s               Settings
		activeProgramID sql.NullString
		acceptedAt      sql.NullString
		err             error
	)
	err = row.Scan(&s.UseEpley, &activeProgramID, &s.DisclaimerAccepted, &acceptedAt,
		&s.RestTimer.Enabled, &s.RestTimer.AutoStart, &s.RestTimer.DurationSec, &s.RestTimer.Sound)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("query settings: %w", err)
	}
	s.ActiveProgramID = activeProgramID.String
	if s.DisclaimerAcceptedAt, err = parseNullTimestamp(acceptedAt); err != nil {
		return Settings{}, fmt.Errorf("parse disclaimer_accepted_at: %w", err)
	}
	return s, nil
}
