package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrBackupNotFound    = errors.New("backup file not found")
	ErrInvalidBackupName = errors.New("invalid backup file: must be a .db file in the backup directory")
)

// BackupInfo contains metadata about a backup file
type BackupInfo struct {
	FileName  string    `json:"fileName"`
	FilePath  string    `json:"filePath"`
	Size      int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// CopyFile copies src to dst and syncs dst to disk.
func CopyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// BackupFileName returns "<prefix><timestamp>.db".
func BackupFileName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s%s.db", prefix, at.Format("20060102_150405.000"))
}

// ListBackups returns the .db files in dir whose names start with prefix,
// newest first. A missing directory has no backups.
func ListBackups(dir, prefix string) ([]BackupInfo, error) {
	backups := []BackupInfo{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			FileName:  entry.Name(),
			FilePath:  filepath.Join(dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].FileName > backups[j].FileName
	})
	return backups, nil
}

// ResolveBackup validates a backup file name and returns its path inside dir.
// Names carrying path separators are rejected so callers cannot escape dir.
func ResolveBackup(dir, fileName string) (string, error) {
	if fileName == "" || filepath.Base(fileName) != fileName || filepath.Ext(fileName) != ".db" {
		return "", ErrInvalidBackupName
	}
	path := filepath.Join(dir, fileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrBackupNotFound, fileName)
	}
	return path, nil
}
