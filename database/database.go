package database

import (
	"context"
	"database/sql"
	"fmt"
	"music-api-go/logcolors"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

const dsnOptions = "_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"

// DB is the local SQLite cache of songs, playlists, search history and play events.
type DB struct {
	db         *sql.DB
	path       string
	backupPath string
	tracker    *tracker
}

// Options configures Open.
type Options struct {
	// BackupPath is the directory backups are written to and restored from.
	// Defaults to a "backups" directory next to the database file.
	BackupPath string
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string, opts Options) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	backupPath := opts.BackupPath
	if backupPath == "" {
		backupPath = filepath.Join(dir, "backups")
	}
	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		log.Infof("%s Found existing database at %s (size: %d bytes)", logcolors.LogDatabase, path, info.Size())
	} else {
		log.Infof("%s Creating new database at %s", logcolors.LogDatabase, path)
	}

	sqlDB, err := sql.Open("sqlite3", "file:"+path+"?"+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: writers serialize here instead of fighting over SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &DB{
		db:         sqlDB,
		path:       path,
		backupPath: backupPath,
		tracker:    newTracker(),
	}

	if err := d.migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}

	log.Infof("%s Database ready at %s", logcolors.LogDatabase, path)
	return d, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// BackupPath returns the backup directory.
func (d *DB) BackupPath() string {
	return d.backupPath
}

// withTx runs fn in a transaction, committing on success and rolling back otherwise.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
