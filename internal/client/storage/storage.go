// Package storage persists the bag collection and the provider credential as
// JSON files in a local data directory.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/BagWardrobe/internal/models"
)

const (
	bagsFile       = "bags.json"
	credentialFile = "credential.json"
)

// LocalStorage keeps the collection in two files under Dir: one holding the bag
// list and one holding the credential.
type LocalStorage struct {
	// Dir is the data directory. Empty means the working directory.
	Dir string
	mu  sync.Mutex
}

// NewLocalStorage creates the data directory if needed.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &LocalStorage{Dir: dir}, nil
}

// LoadBags reads the saved bag list. A missing file yields an empty list.
func (ls *LocalStorage) LoadBags(_ context.Context) ([]models.BagRecord, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	bags := []models.BagRecord{}
	if err := ls.readJSON(bagsFile, &bags); err != nil {
		return nil, err
	}
	return bags, nil
}

// SaveBags replaces the saved bag list.
func (ls *LocalStorage) SaveBags(_ context.Context, bags []models.BagRecord) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if bags == nil {
		bags = []models.BagRecord{}
	}
	return ls.writeJSON(bagsFile, bags, 0o644)
}

// LoadCredential reads the saved credential. A missing file yields "".
func (ls *LocalStorage) LoadCredential(_ context.Context) (string, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	var credential string
	if err := ls.readJSON(credentialFile, &credential); err != nil {
		return "", err
	}
	return credential, nil
}

// SaveCredential replaces the saved credential. The file is readable by the owner only.
func (ls *LocalStorage) SaveCredential(_ context.Context, credential string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.writeJSON(credentialFile, credential, 0o600)
}

func (ls *LocalStorage) path(name string) string {
	return filepath.Join(ls.Dir, name)
}

func (ls *LocalStorage) readJSON(name string, v any) error {
	f, err := os.Open(ls.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// writeJSON replaces name through a temp file and rename.
func (ls *LocalStorage) writeJSON(name string, v any, perm os.FileMode) error {
	dir := ls.Dir
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), ls.path(name))
}
