package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRenameMapSkipsBlankAndCommentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.csv")
	require.NoError(t, os.WriteFile(path, []byte("# comment\n\nold1,new1\nold2;new2\n"), 0o644))

	m, err := ParseRenameMap(path)
	require.NoError(t, err)
	assert.Equal(t, "new1", m["old1"])
	assert.Equal(t, "new2", m["old2"])
	assert.Len(t, m, 2)
}

func TestUniqueFilenameAppendsParenTailOnCollision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kick.wav"), []byte{1}, 0o644))

	used := map[string]bool{}
	name := UniqueFilename(dir, "kick.wav", used)
	assert.Equal(t, "kick(1).wav", name)
}

func TestUniqueFilenameReturnsNameUnchangedWhenFree(t *testing.T) {
	dir := t.TempDir()
	used := map[string]bool{}
	name := UniqueFilename(dir, "snare.wav", used)
	assert.Equal(t, "snare.wav", name)
}

func TestRunCallsEmitWithDetectedInstrument(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.sfz"), []byte("dummy"), 0o644))

	var emittedNames []string
	opts := Options{
		SourceDir: srcDir,
		DestDir:   destDir,
		Detectors: map[string]Detector{
			".sfz": func(path string) ([]*model.MultiSampleSource, error) {
				return []*model.MultiSampleSource{model.NewMultiSampleSource("OldName")}, nil
			},
		},
		Emit: func(src *model.MultiSampleSource, destDir string) ([]string, error) {
			emittedNames = append(emittedNames, src.Name)
			return nil, nil
		},
	}

	d := New(nil, nil)
	require.NoError(t, d.Run(opts))
	assert.Equal(t, []string{"OldName"}, emittedNames)
}

func TestCombineSplitStereoMergesHardPannedPair(t *testing.T) {
	src := model.NewMultiSampleSource("Bass")
	g := model.NewGroup("Main")
	left := model.NewZone("bass_L.wav")
	left.Panning = -1
	left.Sample = &model.InMemorySample{Meta: model.AudioMetadata{Channels: 1, SampleRate: 44100, BitDepth: 16}, Data: []byte{1, 0, 2, 0}}
	right := model.NewZone("bass_R.wav")
	right.Panning = 1
	right.Sample = &model.InMemorySample{Meta: model.AudioMetadata{Channels: 1, SampleRate: 44100, BitDepth: 16}, Data: []byte{3, 0, 4, 0}}
	g.Zones = []*model.Zone{left, right}
	src.Groups = append(src.Groups, g)

	CombineSplitStereo(src, nil)

	require.Len(t, src.Groups[0].Zones, 1)
	merged := src.Groups[0].Zones[0]
	meta, err := merged.Sample.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Channels)
}
