package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, rel string) string {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	return full
}

func TestResolveRelativeToPresetDir(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "Kick.wav")

	r := &Resolver{PresetDir: dir}
	got, err := r.Resolve("Kick.wav")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Kick.wav"), got)
}

func TestResolveAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	full := writeTemp(t, dir, "Snare.wav")

	r := &Resolver{}
	got, err := r.Resolve(full)
	require.NoError(t, err)
	assert.Equal(t, full, got)
}

func TestResolveFallsBackToBoundedSearch(t *testing.T) {
	dir := t.TempDir()
	nested := writeTemp(t, dir, "Samples/Drums/Kick/Kick_01.wav")

	r := &Resolver{PresetDir: filepath.Join(dir, "WrongFolder"), SearchRoots: []string{dir}}
	got, err := r.Resolve("Kick_01.wav")
	require.NoError(t, err)
	assert.Equal(t, nested, got)
}

func TestResolveMissingReturnsSampleNotFound(t *testing.T) {
	dir := t.TempDir()
	r := &Resolver{PresetDir: dir}
	_, err := r.Resolve("DoesNotExist.wav")
	assert.Error(t, err)
}

func TestResolveBackslashReference(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "Sub/Tom.wav")

	r := &Resolver{PresetDir: dir}
	got, err := r.Resolve(`Sub\Tom.wav`)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Sub", "Tom.wav"), got)
}

func TestWalkBoundedRespectsMaxDepth(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a/b/c/d/deep.wav")

	var found []string
	walkBounded(dir, 1, func(path string) { found = append(found, path) })
	assert.Empty(t, found)

	found = nil
	walkBounded(dir, 6, func(path string) { found = append(found, path) })
	assert.Len(t, found, 1)
}
