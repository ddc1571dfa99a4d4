package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rodneyosodo/starfish/pkg/errors"
	"github.com/rodneyosodo/starfish/run"
)

const blobExt = ".jsonl"

// FSStore is the file-backed artifact store. Blobs live in one directory
// per run, one file per key; a publish writes to a temporary file and
// renames it into place so readers never observe a partial blob.
type FSStore struct {
	dir string
	mu  sync.RWMutex
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(_ context.Context, key Key, blob []byte) error {
	if err := key.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	runDir := filepath.Join(s.dir, key.Dir())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	path := filepath.Join(runDir, key.Base()+blobExt)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("artifact %s: %w", key, errors.ErrEntityExists)
	}

	tmp, err := os.CreateTemp(runDir, ".publish-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary artifact: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to publish artifact: %w", err)
	}

	return nil
}

func (s *FSStore) Get(_ context.Context, key Key) ([]byte, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, err := os.ReadFile(filepath.Join(s.dir, key.Dir(), key.Base()+blobExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s: %w", key, errors.ErrNotFound)
		}

		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	return blob, nil
}

func (s *FSStore) List(_ context.Context, runID string, ref run.RoundRef) (map[string][]byte, error) {
	if runID == "" || sanitize(runID) == "" {
		return nil, errors.ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	runDir := filepath.Join(s.dir, sanitize(runID))
	entries, err := os.ReadDir(runDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]byte{}, nil
		}

		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	prefix := fmt.Sprintf("%d-%d-", ref.Sequence, ref.Round)
	blobs := make(map[string][]byte)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, "-mid-artifacts"+blobExt) {
			continue
		}
		participant := strings.TrimSuffix(strings.TrimPrefix(name, prefix), "-mid-artifacts"+blobExt)
		if participant == "" {
			continue
		}
		blob, err := os.ReadFile(filepath.Join(runDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
		}
		blobs[participant] = blob
	}

	return blobs, nil
}
