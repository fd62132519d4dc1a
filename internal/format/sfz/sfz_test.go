package sfz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTokenizeBasicRegion(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "test.sfz", `
<group> amp_veltrack=100
<region> sample=kick.wav lokey=36 hikey=36 pitch_keycenter=c2
`)
	tokens, err := Tokenize(path)
	require.NoError(t, err)

	var sawRegion, sawSample bool
	for _, tok := range tokens {
		if tok.Header == HeaderRegion {
			sawRegion = true
		}
		if tok.Opcode == "sample" && tok.Value == "kick.wav" {
			sawSample = true
		}
	}
	assert.True(t, sawRegion)
	assert.True(t, sawSample)
}

func TestTokenizeIncludeWithCycleDetection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sfz", `#include "b.sfz"`)
	writeFile(t, dir, "b.sfz", `#include "a.sfz"`)

	_, err := Tokenize(filepath.Join(dir, "a.sfz"))
	assert.Error(t, err)
}

func TestTokenizeIncludeResolvesRelativeToIncludingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	writeFile(t, dir, "main.sfz", `#include "sub/inner.sfz"`)
	writeFile(t, dir, "sub/inner.sfz", `<region> sample=tom.wav lokey=40 hikey=40`)

	tokens, err := Tokenize(filepath.Join(dir, "main.sfz"))
	require.NoError(t, err)
	found := false
	for _, tok := range tokens {
		if tok.Opcode == "sample" && tok.Value == "tom.wav" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDecodeInheritsGlobalAndGroupScopeIntoRegion(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "test.sfz", `
<global> ampeg_release=0.5
<group> pan=50
<region> sample=snare.wav lokey=38 hikey=38 lovel=0 hivel=127
`)
	tokens, err := Tokenize(path)
	require.NoError(t, err)

	src, err := Decode(tokens, "test", nil)
	require.NoError(t, err)
	require.Len(t, src.Groups, 1)
	require.Len(t, src.Groups[0].Zones, 1)

	z := src.Groups[0].Zones[0]
	assert.Equal(t, 38, z.KeyLow)
	assert.Equal(t, float64(0.5), z.Panning) // pan=50 -> 0.5
	release, ok := z.AmpEnv.Envelope.Release.Get()
	assert.True(t, ok)
	assert.Equal(t, 0.5, release)
}

func TestDecodeFlatNoteNameKeycenter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "test.sfz", `<region> sample=x.wav lokey=36 hikey=36 pitch_keycenter=Eb2`)
	tokens, err := Tokenize(path)
	require.NoError(t, err)

	src, err := Decode(tokens, "test", nil)
	require.NoError(t, err)
	root, ok := src.Groups[0].Zones[0].KeyRoot.Get()
	assert.True(t, ok)
	assert.Equal(t, 39, root)
}

func TestEmitProducesGroupAndRegionOnly(t *testing.T) {
	src := model.NewMultiSampleSource("Kit")
	g := model.NewGroup("Drums")
	z := model.NewZone("kick.wav")
	z.Sample = model.NewFileSample("kick.wav", nil)
	z.KeyLow, z.KeyHigh = 36, 36
	g.Zones = append(g.Zones, z)
	src.Groups = append(src.Groups, g)

	out := Emit(src)
	assert.Contains(t, out, "<group>")
	assert.Contains(t, out, "<region>")
	assert.NotContains(t, out, "<global>")
	assert.Contains(t, out, "sample=kick.wav")
}
