package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branch-tracker/internal/repository/sqlite"
)

func TestOpenJournal(t *testing.T) {
	cfg := NewConfig()
	cfg.Storage.Dir = filepath.Join(t.TempDir(), "nested", ".bt")

	journal, err := OpenJournal(context.Background(), cfg)
	require.NoError(t, err)
	defer journal.Close()

	require.NoError(t, journal.Append(context.Background(), &sqlite.Transition{SessionID: "s", State: "idle"}))

	_, err = os.Stat(cfg.GetJournalPath())
	assert.NoError(t, err)
}

func TestOpenJournal_DirectoryIsFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := NewConfig()
	cfg.Storage.Dir = filepath.Join(blocker, "sub")

	_, err := OpenJournal(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create data directory")
}

func TestOpenTestJournal(t *testing.T) {
	journal, err := OpenTestJournal()
	require.NoError(t, err)
	defer journal.Close()

	rows, err := journal.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
