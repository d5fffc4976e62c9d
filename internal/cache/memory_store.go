package cache

import (
	"sync"

	"github.com/gantry-dev/gantry/internal/build"
	"github.com/gantry-dev/gantry/internal/fingerprint"
	"github.com/gantry-dev/gantry/pkg/model"
)

// MemoryStore keeps records for a single process. It backs tests and
// --no-cache runs, where persistence would defeat the point.
type MemoryStore struct {
	mu      sync.Mutex
	records map[model.TargetID]build.BuildRecord
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[model.TargetID]build.BuildRecord)}
}

func (s *MemoryStore) Get(id model.TargetID, fp fingerprint.Fingerprint) (build.BuildRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.Fingerprint != fp {
		return build.BuildRecord{}, false, nil
	}
	return record, true, nil
}

func (s *MemoryStore) Put(record build.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.TargetID] = record
	return nil
}

func (s *MemoryStore) Delete(id model.TargetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}
