package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileStore persists keys as a single JSON object on disk. Writes go through
// a temp file and an atomic rename so a crash mid-write cannot corrupt state.
type FileStore struct {
	path string
	mu   sync.Mutex
	data map[string]string
}

// NewFileStore loads or creates the backing file. A corrupted file is backed
// up alongside the original and the store starts fresh rather than failing.
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create state directory")
	}

	s := &FileStore{path: path, data: map[string]string{}}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read state file")
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		backup := path + ".backup"
		if renameErr := os.Rename(path, backup); renameErr == nil {
			log.Warn().Str("backup", backup).Msg("state file corrupted, starting fresh")
		}
		s.data = map[string]string{}
	}

	return s, nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.saveLocked()
}

func (s *FileStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	s.saveLocked()
}

// saveLocked writes the whole map. Failures (quota, read-only disk) are
// logged and swallowed; the in-memory copy stays authoritative for this run.
func (s *FileStore) saveLocked() {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("marshal state")
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		log.Warn().Err(err).Str("path", tmp).Msg("write state file")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("rename state file")
	}
}
