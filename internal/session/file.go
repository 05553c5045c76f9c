package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

const lockRetryDelay = 10 * time.Millisecond

// FileStore persists one session as a YAML document on disk so that several
// processes sharing a session id also share its values. Reads take a shared
// advisory lock, writes an exclusive one; the in-process mutex covers
// goroutines of the same process, which flock does not exclude.
type FileStore struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	closed bool
}

// NewFileStore opens (creating if needed) the session file for id in dir.
func NewFileStore(dir, id string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("session directory is required")
	}
	if !ValidID(id) {
		return nil, fmt.Errorf("invalid session id %q", id)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	path := filepath.Join(dir, "sess_"+id+".yaml")
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the session file location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}

	if _, err := f.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return "", false, fmt.Errorf("lock session file: %w", err)
	}
	defer f.lock.Unlock()

	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

func (f *FileStore) Set(ctx context.Context, key, value string) error {
	return f.update(ctx, func(values map[string]string) {
		values[key] = value
	})
}

func (f *FileStore) Delete(ctx context.Context, key string) error {
	return f.update(ctx, func(values map[string]string) {
		delete(values, key)
	})
}

// Close releases the lock file handle. The session file is kept.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.lock.Close()
}

func (f *FileStore) update(ctx context.Context, mutate func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	if _, err := f.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer f.lock.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	mutate(values)
	return f.write(values)
}

func (f *FileStore) read() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode session file %s: %w", f.path, err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (f *FileStore) write(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
