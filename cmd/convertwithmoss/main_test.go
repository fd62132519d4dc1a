package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/settings"
)

func TestResolveFormatsRejectsUnknownSource(t *testing.T) {
	_, _, err := resolveFormats([]string{"nope"}, "sfz", settings.New())
	require.Error(t, err)
	assert.True(t, isUsageError(err))
}

func TestResolveFormatsDefaultsToEveryDetector(t *testing.T) {
	detectors, emit, err := resolveFormats(nil, "sfz", settings.New())
	require.NoError(t, err)
	assert.NotNil(t, emit)
	assert.Contains(t, detectors, ".sfz")
	assert.Contains(t, detectors, ".sf2")
	assert.Contains(t, detectors, ".kmp")
}

func TestResolveEmitterRequiresTarget(t *testing.T) {
	_, err := resolveEmitter("", settings.New())
	require.Error(t, err)
	assert.True(t, isUsageError(err))
}

func TestSFZDetectThenEmitRoundTrips(t *testing.T) {
	dir := t.TempDir()
	sfzPath := filepath.Join(dir, "Pluck.sfz")
	require.NoError(t, os.WriteFile(sfzPath, []byte(
		"<region> sample=missing.wav lokey=60 hikey=60 pitch_keycenter=60\n"), 0o644))

	sources, err := detectSFZ(sfzPath)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Pluck", sources[0].Name)

	destDir := t.TempDir()
	paths, err := emitSFZ(sources[0], destDir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.FileExists(t, paths[0])
}

func TestKontaktLegacyEmitThenDetectRoundTrips(t *testing.T) {
	src := model.NewMultiSampleSource("Pad")
	g := model.NewGroup("Layer")
	z := model.NewZone("a")
	z.KeyLow, z.KeyHigh = 0, 127
	z.Sample = model.NewFileSample("pad.wav", func(string) (model.AudioMetadata, []byte, error) {
		return model.AudioMetadata{Channels: 1, SampleRate: 44100, BitDepth: 16}, nil, nil
	})
	g.Zones = append(g.Zones, z)
	src.Groups = append(src.Groups, g)

	destDir := t.TempDir()
	paths, err := emitKontaktLegacy(src, destDir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.FileExists(t, paths[0])

	sources, err := detectKontakt(paths[0])
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Pad", sources[0].Name)
	require.Len(t, sources[0].Groups, 1)
	require.Len(t, sources[0].Groups[0].Zones, 1)
	assert.Equal(t, 127, sources[0].Groups[0].Zones[0].KeyHigh)
}

func TestRunReportsUsageErrorExitCode(t *testing.T) {
	code := run([]string{"only-one-arg"})
	assert.Equal(t, exitInvalidArgs, code)
}
