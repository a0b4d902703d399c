package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Backup writes a consistent snapshot of the whole store to path using VACUUM INTO.
//
// The target must not exist.
func (db *Database) Backup(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("backup target %s: %w", path, os.ErrExist)
	}
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	db.logger.LogAttrs(ctx, slog.LevelInfo, "backed up database",
		slog.String("path", path), slog.Duration("duration", time.Since(start)))
	return nil
}
