package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
)

// FileRepo persists the session as a single JSON object in a 0600 file.
// Every write replaces the whole file through a rename, so readers see
// either the old or the new set of keys.
type FileRepo struct {
	mu     sync.Mutex
	path   string
	cipher *Cipher
}

var _ Repo = (*FileRepo)(nil)

type FileRepoOption func(*FileRepo)

// WithCipher encrypts the file at rest.
func WithCipher(c *Cipher) FileRepoOption {
	return func(r *FileRepo) {
		r.cipher = c
	}
}

func NewFileRepo(path string, options ...FileRepoOption) *FileRepo {
	r := &FileRepo{path: path}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *FileRepo) GetItem(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

func (r *FileRepo) SetItems(_ context.Context, items map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load()
	if errors.Is(err, clienterrors.ErrCorruptSession) {
		current = map[string]string{}
	} else if err != nil {
		return err
	}
	for k, v := range items {
		current[k] = v
	}
	return r.save(current)
}

func (r *FileRepo) RemoveItems(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load()
	if err != nil {
		// An unreadable file cannot hold a usable session; start over.
		current = map[string]string{}
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("[FileRepo.RemoveItems] remove: %w", err)
		}
		return nil
	}
	return r.save(current)
}

func (r *FileRepo) load() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileRepo.load] read %s: %w", r.path, err)
	}
	if r.cipher != nil {
		if data, err = r.cipher.Open(data); err != nil {
			return nil, fmt.Errorf("[FileRepo.load] open %s: %w: %w", r.path, clienterrors.ErrCorruptSession, err)
		}
	}
	items := map[string]string{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("[FileRepo.load] decode %s: %w: %w", r.path, clienterrors.ErrCorruptSession, err)
	}
	return items, nil
}

func (r *FileRepo) save(items map[string]string) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("[FileRepo.save] encode: %w", err)
	}
	if r.cipher != nil {
		if data, err = r.cipher.Seal(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[FileRepo.save] mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("[FileRepo.save] create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileRepo.save] chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileRepo.save] write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileRepo.save] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("[FileRepo.save] rename: %w", err)
	}
	return nil
}
