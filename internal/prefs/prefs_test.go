package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MissingFileDefaultsToLightMode(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "prefs.json"))
	require.NoError(t, err)
	assert.False(t, s.DarkMode())
}

func TestStore_TogglePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := NewStore(path)
	require.NoError(t, err)

	on, err := s.ToggleDarkMode()
	require.NoError(t, err)
	assert.True(t, on)

	reopened, err := NewStore(path)
	require.NoError(t, err)
	assert.True(t, reopened.DarkMode())

	off, err := reopened.ToggleDarkMode()
	require.NoError(t, err)
	assert.False(t, off)
}

func TestStore_SetDarkMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, s.SetDarkMode(true))
	assert.True(t, s.DarkMode())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	assert.True(t, reopened.DarkMode())
}

func TestStore_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewStore(path)
	assert.Error(t, err)
}
