// Package cache persists the result of each target's last successful
// action, keyed by target ID and guarded by input fingerprints.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"

	"github.com/gantry-dev/gantry/internal/build"
	"github.com/gantry-dev/gantry/internal/filelock"
	"github.com/gantry-dev/gantry/internal/fingerprint"
	"github.com/gantry-dev/gantry/pkg/model"
)

// Store is the persistence boundary for build and apply receipts.
//
// Get with a fingerprint that doesn't match the live record is a miss, not
// an error. Put unconditionally replaces the live record for its target, so
// there is never more than one record per target ID.
type Store interface {
	Get(id model.TargetID, fp fingerprint.Fingerprint) (build.BuildRecord, bool, error)
	Put(record build.BuildRecord) error

	// Delete drops the live record for a target. Deleting an absent record
	// is a no-op. Used when entities are torn down, so the next apply
	// doesn't mistake them for fresh.
	Delete(id model.TargetID) error
}

// DefaultDir returns the cache location for a workspace:
// $XDG_CACHE_HOME/gantry/<workspace-hash>. Hashing the workspace root keeps
// records from unrelated checkouts apart while letting every run of the
// same checkout share them.
func DefaultDir(workspaceRoot string) string {
	hash := digest.FromString(workspaceRoot).Encoded()[:12]
	return filepath.Join(xdg.CacheHome, "gantry", hash)
}

// FileStore keeps one JSON record file per target under dir. All access
// goes through a single advisory lock file, so concurrent runs and
// concurrent build workers serialize their writes.
type FileStore struct {
	dir string
}

var _ Store = &FileStore{}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Get(id model.TargetID, fp fingerprint.Fingerprint) (build.BuildRecord, bool, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return build.BuildRecord{}, false, nil
	}

	var record build.BuildRecord
	found := false
	err := filelock.WithRLock(s.lockPath(), func() error {
		data, err := os.ReadFile(s.recordPath(id))
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &record); err != nil {
			// A mangled record reads as a miss; the next Put heals it.
			return nil
		}
		found = true
		return nil
	})
	if err != nil {
		return build.BuildRecord{}, false, errors.Wrapf(err, "cache get %s", id)
	}
	if !found || record.TargetID != id || record.Fingerprint != fp {
		return build.BuildRecord{}, false, nil
	}
	return record, true, nil
}

func (s *FileStore) Put(record build.BuildRecord) error {
	if record.TargetID.Empty() {
		return errors.New("cache: record missing target id")
	}
	if record.Fingerprint.Empty() {
		return errors.Errorf("cache: record for %s missing fingerprint", record.TargetID)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "cache dir")
	}

	err := filelock.WithLock(s.lockPath(), func() error {
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		return writeFileAtomic(s.dir, s.recordPath(record.TargetID), data)
	})
	return errors.Wrapf(err, "cache put %s", record.TargetID)
}

func (s *FileStore) Delete(id model.TargetID) error {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil
	}
	err := filelock.WithLock(s.lockPath(), func() error {
		err := os.Remove(s.recordPath(id))
		if os.IsNotExist(err) {
			return nil
		}
		return err
	})
	return errors.Wrapf(err, "cache delete %s", id)
}

func (s *FileStore) lockPath() string {
	return filepath.Join(s.dir, "gantry.lock")
}

// recordPath names record files after the target for debuggability, with a
// short hash suffix so sanitizing can't collide two IDs.
func (s *FileStore) recordPath(id model.TargetID) string {
	str := id.String()
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, str)
	if len(sanitized) > 80 {
		sanitized = sanitized[:80]
	}
	hash := digest.FromString(str).Encoded()[:8]
	return filepath.Join(s.dir, sanitized+"-"+hash+".json")
}

func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".record-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpName)
		return closeErr
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
