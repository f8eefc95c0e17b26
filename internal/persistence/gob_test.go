package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state struct {
	Name  string
	Count int
}

func TestSaveAndLoadGob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.gob")

	require.NoError(t, SaveGob(path, state{Name: "guide", Count: 3}))
	require.NoError(t, SaveGob(path, state{Name: "guide", Count: 4}))

	var got state
	require.NoError(t, LoadGob(path, &got))
	assert.Equal(t, state{Name: "guide", Count: 4}, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestLoadGob_Missing(t *testing.T) {
	var got state
	err := LoadGob(filepath.Join(t.TempDir(), "missing.gob"), &got)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadGob_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.gob")
	require.NoError(t, os.WriteFile(path, []byte("not gob"), 0600))

	var got state
	err := LoadGob(path, &got)
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}

func TestSaveGob_Unencodable(t *testing.T) {
	dir := t.TempDir()
	err := SaveGob(filepath.Join(dir, "bad.gob"), make(chan int))
	require.Error(t, err)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}
