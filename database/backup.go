package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"music-api-go/logcolors"
	"music-api-go/utils"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

// BackupPrefix prefixes every database backup file name.
const BackupPrefix = "music_backup_"

// CheckpointResult is what PRAGMA wal_checkpoint reports.
type CheckpointResult struct {
	Busy         bool `json:"busy"`
	LogFrames    int  `json:"logFrames"`
	Checkpointed int  `json:"checkpointedFrames"`
}

func checkpoint(ctx context.Context, c queryRower) (CheckpointResult, error) {
	var busy int
	var res CheckpointResult
	if err := c.QueryRowContext(ctx, "PRAGMA wal_checkpoint(FULL)").Scan(&busy, &res.LogFrames, &res.Checkpointed); err != nil {
		return res, fmt.Errorf("wal checkpoint: %w", err)
	}
	res.Busy = busy != 0
	return res, nil
}

// Checkpoint flushes the write-ahead log into the main database file.
func (d *DB) Checkpoint(ctx context.Context) (CheckpointResult, error) {
	return checkpoint(ctx, d.db)
}

// Backup checkpoints and copies the database file into the backup directory.
// The copy happens while holding the only connection, so no write can land
// between the checkpoint and the copy.
func (d *DB) Backup(ctx context.Context) (string, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer c.Close()

	if _, err := checkpoint(ctx, c); err != nil {
		return "", err
	}

	backupFilePath := filepath.Join(d.backupPath, utils.BackupFileName(BackupPrefix, time.Now()))
	if err := utils.CopyFile(d.path, backupFilePath); err != nil {
		os.Remove(backupFilePath)
		return "", fmt.Errorf("failed to copy database: %w", err)
	}

	log.Infof("%s Backup created successfully: %s", logcolors.LogDatabaseBackup, backupFilePath)
	return backupFilePath, nil
}

// ListBackups lists database backups, newest first.
func (d *DB) ListBackups() ([]utils.BackupInfo, error) {
	return utils.ListBackups(d.backupPath, BackupPrefix)
}

// DeleteBackup removes one backup file.
func (d *DB) DeleteBackup(fileName string) error {
	path, err := utils.ResolveBackup(d.backupPath, fileName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	log.Infof("%s Deleted backup: %s", logcolors.LogDatabaseBackup, fileName)
	return nil
}

// Restore copies a backup over the live database using SQLite's online
// backup API, then signals every live query to re-read.
func (d *DB) Restore(ctx context.Context, fileName string) error {
	backupFilePath, err := utils.ResolveBackup(d.backupPath, fileName)
	if err != nil {
		return err
	}

	log.Infof("%s Starting restore from backup: %s", logcolors.LogDatabaseRestore, fileName)

	src, err := sql.Open("sqlite3", "file:"+backupFilePath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer src.Close()

	srcConn, err := src.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer srcConn.Close()

	dstConn, err := d.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer dstConn.Close()

	if _, err := checkpoint(ctx, dstConn); err != nil {
		return err
	}

	err = dstConn.Raw(func(dstDriver any) error {
		dst, ok := dstDriver.(*sqlite3.SQLiteConn)
		if !ok {
			return errors.New("unexpected driver connection")
		}
		return srcConn.Raw(func(srcDriver any) error {
			s, ok := srcDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return errors.New("unexpected driver connection")
			}
			b, err := dst.Backup("main", s, "main")
			if err != nil {
				return err
			}
			if _, err := b.Step(-1); err != nil {
				b.Finish()
				return err
			}
			return b.Finish()
		})
	})
	if err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	dstConn.Close()

	// Older backups may predate tables added since.
	if err := d.migrate(ctx); err != nil {
		return err
	}

	d.tracker.notify(allTables...)
	log.Infof("%s Successfully restored from backup: %s", logcolors.LogDatabaseRestore, fileName)
	return nil
}
