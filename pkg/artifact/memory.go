package artifact

import (
	"context"
	"fmt"
	"sync"

	"github.com/rodneyosodo/starfish/pkg/errors"
	"github.com/rodneyosodo/starfish/run"
)

// MemStore is an in-memory artifact store with the same write-once contract
// as FSStore, used by tests and single-process runs.
type MemStore struct {
	sync.Mutex

	blobs map[Key][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{
		blobs: make(map[Key][]byte),
	}
}

func (s *MemStore) Put(_ context.Context, key Key, blob []byte) error {
	if err := key.validate(); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if _, ok := s.blobs[key]; ok {
		return fmt.Errorf("artifact %s: %w", key, errors.ErrEntityExists)
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	s.blobs[key] = cp

	return nil
}

func (s *MemStore) Get(_ context.Context, key Key) ([]byte, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()

	blob, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", key, errors.ErrNotFound)
	}

	return blob, nil
}

func (s *MemStore) List(_ context.Context, runID string, ref run.RoundRef) (map[string][]byte, error) {
	if runID == "" {
		return nil, errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	blobs := make(map[string][]byte)
	for key, blob := range s.blobs {
		if key.Global() || key.RunID != runID || key.Ref() != ref {
			continue
		}
		blobs[key.Participant] = blob
	}

	return blobs, nil
}
