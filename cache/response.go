package cache

import (
	"encoding/json"
	"fmt"
	"music-api-go/logcolors"
	"music-api-go/utils"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketName = "responses"

	// BackupPrefix prefixes every response cache backup file name.
	BackupPrefix = "responses_backup_"
)

// ResponseCache keeps upstream response bodies in BoltDB, fronted by an
// in-memory copy of every entry. Entries expire individually.
type ResponseCache struct {
	mu                 sync.RWMutex
	db                 *bolt.DB
	memCache           sync.Map
	dbPath             string
	backupPath         string
	compressionEnabled bool
	now                func() time.Time
}

// Entry is one cached body. Value is gzipped when compression is enabled.
type Entry struct {
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (e Entry) expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixMilli() >= e.ExpiresAt
}

// New opens (or creates) the cache file at dbPath and preloads unexpired
// entries into memory.
func New(dbPath string, backupPath string, compressionEnabled bool) (*ResponseCache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	if info, err := os.Stat(dbPath); err == nil {
		log.Infof("%s Found existing cache file at: %s (size: %d bytes)", logcolors.LogCacheInit, dbPath, info.Size())
	} else {
		log.Infof("%s Creating new cache file at: %s", logcolors.LogCacheInit, dbPath)
	}

	rc := &ResponseCache{
		dbPath:             dbPath,
		backupPath:         backupPath,
		compressionEnabled: compressionEnabled,
		now:                time.Now,
	}
	if err := rc.open(); err != nil {
		return nil, err
	}

	log.Infof("%s Response cache initialized at %s (compression: %v)", logcolors.LogCacheInit, dbPath, compressionEnabled)
	return rc, nil
}

func (rc *ResponseCache) open() error {
	db, err := bolt.Open(rc.dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create cache bucket: %w", err)
	}
	rc.db = db

	if err := rc.loadToMemory(); err != nil {
		log.Warnf("%s Failed to preload cache to memory: %v", logcolors.LogCache, err)
	}
	return nil
}

func (rc *ResponseCache) loadToMemory() error {
	rc.memCache.Range(func(k, _ interface{}) bool {
		rc.memCache.Delete(k)
		return true
	})

	now := rc.now()
	count := 0
	err := rc.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Skipping unreadable entry %s: %v", logcolors.LogCache, string(k), err)
				return nil
			}
			if entry.expired(now) {
				return nil
			}
			rc.memCache.Store(string(k), entry)
			count++
			return nil
		})
	})
	if err != nil {
		return err
	}

	log.Infof("%s Loaded %d entries from disk to memory", logcolors.LogCache, count)
	return nil
}

// Get returns the body stored under key, or false if it is absent or expired.
func (rc *ResponseCache) Get(key string) ([]byte, bool) {
	v, ok := rc.memCache.Load(key)
	if !ok {
		return nil, false
	}
	entry := v.(Entry)
	if entry.expired(rc.now()) {
		rc.memCache.Delete(key)
		return nil, false
	}

	if !rc.compressionEnabled {
		return entry.Value, true
	}
	body, err := utils.Decompress(entry.Value)
	if err != nil {
		log.Errorf("%s Error decompressing value for key %s: %v", logcolors.LogCache, key, err)
		return nil, false
	}
	return body, true
}

// Set stores body under key for ttl. A ttl of zero never expires.
func (rc *ResponseCache) Set(key string, body []byte, ttl time.Duration) error {
	value := body
	if rc.compressionEnabled {
		compressed, err := utils.Compress(body)
		if err != nil {
			return fmt.Errorf("compress %s: %w", key, err)
		}
		value = compressed
	}

	entry := Entry{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = rc.now().Add(ttl).UnixMilli()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	rc.mu.RLock()
	defer rc.mu.RUnlock()
	rc.memCache.Store(key, entry)
	return rc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
}

// Delete removes key.
func (rc *ResponseCache) Delete(key string) error {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	rc.memCache.Delete(key)
	return rc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Clear removes every entry.
func (rc *ResponseCache) Clear() error {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	rc.memCache.Range(func(k, _ interface{}) bool {
		rc.memCache.Delete(k)
		return true
	})
	return rc.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// PurgeExpired deletes expired entries from memory and disk and reports how
// many were removed from disk.
func (rc *ResponseCache) PurgeExpired() (int, error) {
	now := rc.now()
	rc.memCache.Range(func(k, v interface{}) bool {
		if v.(Entry).expired(now) {
			rc.memCache.Delete(k)
		}
		return true
	})

	rc.mu.RLock()
	defer rc.mu.RUnlock()

	removed := 0
	err := rc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var keys [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var entry Entry
			if json.Unmarshal(v, &entry) == nil && entry.expired(now) {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Infof("%s Purged %d expired entries", logcolors.LogCacheClear, removed)
	}
	return removed, nil
}

// StartJanitor purges expired entries every interval until stop is closed.
func (rc *ResponseCache) StartJanitor(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := rc.PurgeExpired(); err != nil {
					log.Warnf("%s Purge failed: %v", logcolors.LogCache, err)
				}
			case <-stop:
				return
			}
		}
	}()
}

// Stats reports the number of live entries and their stored size.
func (rc *ResponseCache) Stats() (numKeys int, sizeInKB int) {
	now := rc.now()
	size := 0
	rc.memCache.Range(func(k, v interface{}) bool {
		entry := v.(Entry)
		if entry.expired(now) {
			return true
		}
		numKeys++
		size += len(k.(string)) + len(entry.Value)
		return true
	})
	return numKeys, size / 1024
}

// Backup copies the cache file into the backup directory.
func (rc *ResponseCache) Backup() (string, error) {
	backupFilePath := filepath.Join(rc.backupPath, utils.BackupFileName(BackupPrefix, rc.now()))

	rc.mu.RLock()
	defer rc.mu.RUnlock()
	// A read transaction sees a consistent snapshot while writers continue.
	err := rc.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(backupFilePath, 0600)
	})
	if err != nil {
		return "", fmt.Errorf("failed to copy cache database: %w", err)
	}

	log.Infof("%s Backup created successfully: %s", logcolors.LogCacheBackup, backupFilePath)
	return backupFilePath, nil
}

// ListBackups lists cache backups, newest first.
func (rc *ResponseCache) ListBackups() ([]utils.BackupInfo, error) {
	return utils.ListBackups(rc.backupPath, BackupPrefix)
}

// Restore replaces the cache file with a backup and reloads memory.
func (rc *ResponseCache) Restore(fileName string) error {
	backupFilePath, err := utils.ResolveBackup(rc.backupPath, fileName)
	if err != nil {
		return err
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	log.Infof("%s Starting restore from backup: %s", logcolors.LogCacheRestore, fileName)
	if err := rc.db.Close(); err != nil {
		return fmt.Errorf("failed to close current cache: %w", err)
	}

	preRestore := rc.dbPath + ".pre-restore"
	if err := utils.CopyFile(rc.dbPath, preRestore); err != nil {
		rc.open()
		return fmt.Errorf("failed to save current cache: %w", err)
	}
	if err := utils.CopyFile(backupFilePath, rc.dbPath); err != nil {
		utils.CopyFile(preRestore, rc.dbPath)
		rc.open()
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	os.Remove(preRestore)

	if err := rc.open(); err != nil {
		return fmt.Errorf("failed to reopen cache after restore: %w", err)
	}
	log.Infof("%s Successfully restored from backup: %s", logcolors.LogCacheRestore, fileName)
	return nil
}

// DeleteBackup removes one backup file.
func (rc *ResponseCache) DeleteBackup(fileName string) error {
	path, err := utils.ResolveBackup(rc.backupPath, fileName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	log.Infof("%s Deleted backup: %s", logcolors.LogCacheBackups, fileName)
	return nil
}

// Close closes the cache file.
func (rc *ResponseCache) Close() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.db != nil {
		return rc.db.Close()
	}
	return nil
}
