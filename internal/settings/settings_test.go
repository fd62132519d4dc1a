package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsEmptyStore(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", s.String("anything", "fallback"))
}

func TestSetSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := New()
	s.Set("resample.maxRate", "48000")
	s.Set("trim.enabled", "true")
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 48000, loaded.Int("resample.maxRate", 0))
	assert.True(t, loaded.Bool("trim.enabled", false))
	assert.Equal(t, "def", loaded.String("missing", "def"))
}

func TestTypedAccessorsFallBackOnUnparsableValue(t *testing.T) {
	s := New()
	s.Set("rate", "not-a-number")
	assert.Equal(t, 44100, s.Int("rate", 44100))
	assert.Equal(t, 1.0, s.Float("rate", 1.0))
	assert.False(t, s.Bool("rate", false))
}
