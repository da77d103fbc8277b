package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// FileStore persists entries as one JSON file per key under
// dir/<namespace>/<key>.json. Concurrent writers of the same key follow
// last-writer-wins; readers treat any unparseable file as absent.
type FileStore struct {
	dir string
}

// NewFile creates a FileStore rooted at dir, creating it if needed.
func NewFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

type fileEntry struct {
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

func (f *FileStore) Get(_ context.Context, namespace, key string) (*Entry, error) {
	data, err := os.ReadFile(f.path(namespace, key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: read %s/%s", namespace, key)
	}

	var fe fileEntry
	if err := json.Unmarshal(data, &fe); err != nil {
		// A torn or corrupted file reads as a miss, by contract.
		return nil, nil
	}

	return &Entry{Key: key, CreatedAt: fe.CreatedAt, Payload: fe.Payload}, nil
}

func (f *FileStore) Put(_ context.Context, namespace, key string, payload []byte) error {
	nsDir := filepath.Join(f.dir, namespace)
	if err := os.MkdirAll(nsDir, 0o755); err != nil {
		return eris.Wrapf(err, "cache: create namespace dir %s", namespace)
	}

	fe := fileEntry{CreatedAt: time.Now().UTC(), Payload: payload}
	data, err := json.Marshal(fe)
	if err != nil {
		return eris.Wrapf(err, "cache: marshal %s/%s", namespace, key)
	}

	if err := os.WriteFile(f.path(namespace, key), data, 0o644); err != nil {
		return eris.Wrapf(err, "cache: write %s/%s", namespace, key)
	}
	return nil
}

func (f *FileStore) Invalidate(_ context.Context, namespace, key string) error {
	err := os.Remove(f.path(namespace, key))
	if err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "cache: remove %s/%s", namespace, key)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) path(namespace, key string) string {
	return filepath.Join(f.dir, namespace, key+".json")
}
