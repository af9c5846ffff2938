package config

import (
	"context"
	"fmt"
	"os"

	"branch-tracker/internal/repository/sqlite"
)

// OpenJournal opens the transition journal in the configured data directory,
// creating the directory when needed
func OpenJournal(ctx context.Context, config *Config) (sqlite.Journal, error) {
	if err := os.MkdirAll(config.Storage.Dir, os.FileMode(config.Storage.DirPermissions)); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	journal, err := sqlite.New(ctx, config.GetJournalPath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	return journal, nil
}

// OpenTestJournal creates an in-memory journal for testing
func OpenTestJournal() (sqlite.Journal, error) {
	journal, err := sqlite.New(context.Background(), ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize test journal: %w", err)
	}
	return journal, nil
}
