// Package store archives sync history into a local bbolt file. It is only
// written when the user explicitly exports history.
package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.trai.ch/zerr"

	"github.com/mmcdole/booksync/internal/domain"
)

// Bucket names
var (
	bucketRuns = []byte("runs")
	bucketMeta = []byte("meta")
)

var (
	keyStats      = []byte("stats")
	keyExportedAt = []byte("exported_at")
	keyServer     = []byte("server")
)

// ArchiveFile is the database file name inside the per-server directory
const ArchiveFile = "history.db"

// HistoryArchive is a bbolt file of exported sync runs, keyed by run ID.
type HistoryArchive struct {
	db   *bolt.DB
	path string
}

// ArchivePath returns the archive location for a server under baseDir.
// Each server gets its own directory so exports never mix.
func ArchivePath(baseDir, serverURL string) string {
	return filepath.Join(baseDir, hashServerURL(serverURL), ArchiveFile)
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// OpenArchive opens or creates the archive at path.
func OpenArchive(path string) (*HistoryArchive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create archive directory"), "path", path)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open bolt db"), "path", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, zerr.Wrap(err, "failed to create buckets")
	}

	return &HistoryArchive{db: db, path: path}, nil
}

// Path returns the database file path
func (a *HistoryArchive) Path() string { return a.path }

func (a *HistoryArchive) Close() error {
	return a.db.Close()
}

// runKey orders runs by ID so a reverse cursor walk yields newest first
func runKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

// Export merges a snapshot into the archive. Runs already present are
// overwritten; it returns how many runs were new.
func (a *HistoryArchive) Export(serverURL string, snap *domain.HistorySnapshot) (int, error) {
	added := 0
	err := a.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket(bucketRuns)
		for _, e := range snap.Entries {
			data, err := json.Marshal(e)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to encode run"), "run_id", e.ID)
			}
			key := runKey(e.ID)
			if runs.Get(key) == nil {
				added++
			}
			if err := runs.Put(key, data); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		stats, err := json.Marshal(snap.Stats)
		if err != nil {
			return zerr.Wrap(err, "failed to encode stats")
		}
		exportedAt, err := snap.LoadedAt.UTC().MarshalText()
		if err != nil {
			return zerr.Wrap(err, "failed to encode export time")
		}
		if err := meta.Put(keyStats, stats); err != nil {
			return err
		}
		if err := meta.Put(keyExportedAt, exportedAt); err != nil {
			return err
		}
		return meta.Put(keyServer, []byte(serverURL))
	})
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to export history"), "path", a.path)
	}
	return added, nil
}

// Entries returns archived runs newest first. limit <= 0 returns all.
func (a *HistoryArchive) Entries(limit int) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	err := a.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e domain.HistoryEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to decode run"), "key", hex.EncodeToString(k))
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Summary is the metadata of the most recent export
type Summary struct {
	Server     string
	Stats      domain.HistoryStats
	ExportedAt time.Time
	Runs       int
}

// Summary reports what the archive holds. ok is false before the first export.
func (a *HistoryArchive) Summary() (s Summary, ok bool, err error) {
	err = a.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		raw := meta.Get(keyExportedAt)
		if raw == nil {
			return nil
		}
		ok = true
		if err := s.ExportedAt.UnmarshalText(raw); err != nil {
			return zerr.Wrap(err, "failed to decode export time")
		}
		if err := json.Unmarshal(meta.Get(keyStats), &s.Stats); err != nil {
			return zerr.Wrap(err, "failed to decode stats")
		}
		s.Server = string(meta.Get(keyServer))
		s.Runs = tx.Bucket(bucketRuns).Stats().KeyN
		return nil
	})
	return s, ok, err
}
