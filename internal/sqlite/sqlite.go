package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

//go:embed fixtures.sql
var fixtures string

// Database holds the read/write and read-only connection pools to the entity store.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

// NewDatabase opens the store at url, brings the schema up to date and seeds the settings row. Use ":memory:" for a
// throwaway store.
//
// Writes go through a single connection and reads through a small read-only pool, see
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995. The hourly PRAGMA optimize runs until
// ctx is done.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply fixtures: %w", err)
	}

	go db.startDatabaseOptimizer(ctx)

	return db, nil
}

//nolint:gochecknoglobals // the driver may be registered only once per process.
var registerDriver sync.Once

const driverName = "sqlite3liftlog"

// connectPragmas run on every new connection. Temporary tables stay in memory and pages are memory mapped.
const connectPragmas = "PRAGMA temp_store = memory; PRAGMA mmap_size = 268435456;"

// maxReadConns is enough for one device polling the session while a backup or history query runs.
const maxReadConns = 4

// dsnParams are go-sqlite3 options shared by both pools. See
// https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open.
var dsnParams = []string{ //nolint:gochecknoglobals // constant list.
	"_loc=auto",
	"_defer_foreign_keys=1",
	"_foreign_keys=on",
	"_journal_mode=wal",
	"_busy_timeout=5000",
	"_synchronous=normal",
}

// dataSourceNames returns the read-write and read-only DSNs for url. An url containing ":memory:" becomes a uniquely
// named shared-cache memory database so that both pools see the same data and parallel tests stay isolated.
func dataSourceNames(url string) (string, string) {
	params := strings.Join(dsnParams, "&")
	if strings.Contains(url, ":memory:") {
		url = rand.Text()
		params += "&mode=memory&cache=shared"
		return "file:" + url + "?_txlock=immediate&" + params,
			"file:" + url + "?_txlock=deferred&_query_only=true&" + params
	}
	return "file:" + url + "?mode=rwc&_txlock=immediate&" + params,
		"file:" + url + "?mode=ro&_txlock=deferred&_query_only=true&" + params
}

func openPool(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	registerDriver.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			Extensions: nil,
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if _, err := conn.Exec(connectPragmas, nil); err != nil {
					return fmt.Errorf("exec connect pragmas: %w", err)
				}
				return nil
			},
		})
	})
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)
	// sql.Open is lazy. Pinging applies the connect pragmas and surfaces a bad path early.
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	readWriteDSN, readOnlyDSN := dataSourceNames(url)

	// A single writer connection serialises writes and makes every Update a plain read-modify-write.
	readWrite, err := openPool(ctx, readWriteDSN, 1)
	if err != nil {
		return nil, fmt.Errorf("read-write pool: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteDSN))

	readOnly, err := openPool(ctx, readOnlyDSN, maxReadConns)
	if err != nil {
		_ = readWrite.Close()
		return nil, fmt.Errorf("read-only pool: %w", err)
	}

	return &Database{
		ReadWrite: readWrite,
		ReadOnly:  readOnly,
		logger:    logger,
	}, nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
