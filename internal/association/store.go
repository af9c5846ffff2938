// Package association reads and writes the branch-to-task side-file that the
// branch-from-task flow leaves behind.
package association

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"branch-tracker/internal/domain"
	"branch-tracker/internal/errors"
	"branch-tracker/internal/validation"
)

// Store is a JSON object keyed by branch name.
type Store struct {
	mu        sync.Mutex
	path      string
	dirPerm   os.FileMode
	validator *validation.Validator
}

// NewStore opens the side-file at path. The file need not exist.
func NewStore(path string, dirPerm os.FileMode) *Store {
	if dirPerm == 0 {
		dirPerm = 0755
	}
	return &Store{path: path, dirPerm: dirPerm, validator: validation.NewValidator()}
}

// Path returns the side-file location.
func (s *Store) Path() string {
	return s.path
}

// Lookup returns the association recorded for branch. A missing file or
// branch is not an error.
func (s *Store) Lookup(branch string) (domain.BranchTaskAssociation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return domain.BranchTaskAssociation{}, false, err
	}
	assoc, ok := all[branch]
	if !ok || !assoc.IsValid() {
		return domain.BranchTaskAssociation{}, false, nil
	}
	return assoc, true, nil
}

// All returns every recorded association.
func (s *Store) All() (map[string]domain.BranchTaskAssociation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Save records assoc for branch, replacing any earlier record.
func (s *Store) Save(branch string, assoc domain.BranchTaskAssociation) error {
	if err := s.validator.ValidateAssociation(branch, assoc); err != nil {
		return errors.NewValidationError("invalid association", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	all[branch] = assoc

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return errors.NewStorageError("encode associations", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), s.dirPerm); err != nil {
		return errors.NewStorageError("create associations directory", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.NewStorageError("write associations", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.NewStorageError("rename associations", err)
	}
	return nil
}

func (s *Store) read() (map[string]domain.BranchTaskAssociation, error) {
	all := make(map[string]domain.BranchTaskAssociation)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return all, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("read associations", err)
	}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, errors.NewStorageError("decode associations", fmt.Errorf("%s: %w", s.path, err))
	}
	return all, nil
}
