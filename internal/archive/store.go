// Package archive implements the durable local collection of completed runs.
//
// The whole collection is serialized as one JSON document and rewritten on
// every mutation. The store assumes a single active client process;
// concurrent writers are not coordinated.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caselens/caselens/internal/api"
	"github.com/caselens/caselens/internal/logging"
)

// Store holds completed runs newest-first and persists them to a single file.
type Store struct {
	mu      sync.Mutex
	path    string
	records []api.ArchivedCase
	log     *slog.Logger
	now     func() time.Time
}

// NewStore creates a store backed by the given file path. Nothing is read
// until Load.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		log:  logging.New("archive"),
		now:  time.Now,
	}
}

// Load reads the persisted collection. A missing or unreadable file degrades
// to an empty collection; corruption is logged, never surfaced.
func (s *Store) Load() []api.ArchivedCase {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("archive unreadable, starting empty", "path", s.path, "err", err)
		}
		return nil
	}
	var records []api.ArchivedCase
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Warn("archive corrupt, starting empty", "path", s.path, "err", err)
		return nil
	}
	s.records = records
	return s.snapshot()
}

// Save archives a completed run. The record id and creation time are assigned
// here; the id is a random token independent of the run id. The record is
// prepended (newest-first) and the collection is written back synchronously
// before Save returns.
func (s *Store) Save(runID, inputText string, result api.FinalResult) (api.ArchivedCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := api.ArchivedCase{
		ID:        uuid.NewString(),
		RunID:     runID,
		InputText: inputText,
		Result:    result,
		CreatedAt: s.now().UTC(),
	}
	s.records = append([]api.ArchivedCase{record}, s.records...)
	if err := s.write(); err != nil {
		return api.ArchivedCase{}, err
	}
	return record, nil
}

// Delete removes the record with the given id and writes back synchronously.
// Unknown ids are a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0:0]
	found := false
	for _, rec := range s.records {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return nil
	}
	s.records = kept
	return s.write()
}

// Find returns the record with the given id.
func (s *Store) Find(id string) (api.ArchivedCase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return api.ArchivedCase{}, false
}

// All returns a copy of the current collection, newest-first.
func (s *Store) All() []api.ArchivedCase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() []api.ArchivedCase {
	out := make([]api.ArchivedCase, len(s.records))
	copy(out, s.records)
	return out
}

// write persists the full collection. Temp-file-plus-rename bounds a failed
// write to losing only the in-flight mutation.
func (s *Store) write() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create archive dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace archive: %w", err)
	}
	return nil
}
