package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// sqliteProgramRepository implements programRepository.
type sqliteProgramRepository struct {
	baseRepository
}

const selectProgram = `SELECT id, name, created_at, updated_at, start_date, total_weeks FROM programs`

// List returns all programs, most recently created first.
func (r *sqliteProgramRepository) List(ctx context.Context) (_ []Program, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, selectProgram+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	defer closeRows(rows, &err)

	var programs []Program
	for rows.Next() {
		var p Program
		if p, err = scanProgram(rows); err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return programs, nil
}

// Get retrieves a single program by ID.
func (r *sqliteProgramRepository) Get(ctx context.Context, id string) (Program, error) {
	p, err := scanProgram(r.db.ReadOnly.QueryRowContext(ctx, selectProgram+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Program{}, ErrNotFound
	}
	if err != nil {
		return Program{}, err
	}
	return p, nil
}

// Create stores the program and all its templates in one transaction.
func (r *sqliteProgramRepository) Create(ctx context.Context, graph ProgramGraph, now time.Time) (Program, error) {
	p := Program{
		ID:         uuid.NewString(),
		Name:       graph.Name,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
		StartDate:  graph.StartDate.UTC(),
		TotalWeeks: graph.TotalWeeks,
	}
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO programs (id, name, created_at, updated_at, start_date, total_weeks)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, formatTimestamp(p.CreatedAt), formatTimestamp(p.UpdatedAt),
			formatTimestamp(p.StartDate), p.TotalWeeks); err != nil {
			return fmt.Errorf("insert program: %w", err)
		}
		for _, tg := range graph.Templates {
			templateID := uuid.NewString()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO workout_templates (id, program_id, name, day_index, week_number)
				VALUES (?, ?, ?, ?, ?)`,
				templateID, p.ID, tg.Name, tg.DayIndex, tg.WeekNumber); err != nil {
				return fmt.Errorf("insert workout template %q: %w", tg.Name, err)
			}
			for i, eg := range tg.Exercises {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO exercise_templates (id, workout_template_id, name, target_sets, target_reps, notes,
					                                order_index)
					VALUES (?, ?, ?, ?, ?, ?, ?)`,
					uuid.NewString(), templateID, eg.Name, eg.TargetSets, eg.TargetReps, eg.Notes, i); err != nil {
					return fmt.Errorf("insert exercise template %q: %w", eg.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return Program{}, fmt.Errorf("create program: %w", err)
	}
	return p, nil
}

// Update applies updateFn to the program and saves it if updateFn reports a change.
func (r *sqliteProgramRepository) Update(
	ctx context.Context,
	id string,
	updateFn func(p *Program) (bool, error),
) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		p, err := scanProgram(tx.QueryRowContext(ctx, selectProgram+` WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		updated, err := updateFn(&p)
		if err != nil {
			return fmt.Errorf("update function: %w", err)
		}
		if !updated {
			return nil
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE programs
			SET name = ?, updated_at = ?, start_date = ?, total_weeks = ?
			WHERE id = ?`,
			p.Name, formatTimestamp(p.UpdatedAt), formatTimestamp(p.StartDate), p.TotalWeeks, id); err != nil {
			return fmt.Errorf("update program: %w", err)
		}
		return nil
	})
}

// Delete removes the program. Templates cascade; workouts keep their name snapshot.
func (r *sqliteProgramRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ReadWrite.ExecContext(ctx, `DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (Program, error) {
	var (
		p                                  Program
		createdAt, updatedAt, startDateStr string
		err                                error
	)
	if err = row.Scan(&p.ID, &p.Name, &createdAt, &updatedAt, &startDateStr, &p.TotalWeeks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Program{}, err
		}
		return Program{}, fmt.Errorf("scan program: %w", err)
	}
	if p.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return Program{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return Program{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if p.StartDate, err = parseTimestamp(startDateStr); err != nil {
		return Program{}, fmt.Errorf("parse start_date: %w", err)
	}
	return p, nil
}
