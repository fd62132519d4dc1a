package bitwig

import (
	"testing"
	"time"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSource() *model.MultiSampleSource {
	src := model.NewMultiSampleSource("Warm Pad")
	src.Metadata.Creator = "Acme"
	src.Metadata.SetCategory(model.CategoryPad)
	g := model.NewGroup("Layer 1")
	z := model.NewZone("pad_c3.wav")
	z.Sample = model.NewFileSample("pad_c3.wav", nil)
	z.KeyLow, z.KeyHigh = 48, 60
	z.KeyRoot = model.Some(54)
	z.Loops = append(z.Loops, model.Loop{Type: model.LoopForward, Start: 100, End: 5000})
	z.Filter = &model.Filter{Type: model.FilterLowPass, Cutoff: 2000, Resonance: 0.2}
	g.Zones = append(g.Zones, z)
	src.Groups = append(src.Groups, g)
	return src
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := buildSource()
	archive, err := Encode(src, map[string][]byte{"pad_c3.wav": {1, 2, 3}}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	got, err := Decode(archive, nil)
	require.NoError(t, err)
	assert.Equal(t, "Warm Pad", got.Name)
	assert.Equal(t, "Acme", got.Metadata.Creator)
	assert.Equal(t, model.CategoryPad, got.Metadata.Category)

	require.Len(t, got.Groups, 1)
	require.Len(t, got.Groups[0].Zones, 1)
	z := got.Groups[0].Zones[0]
	assert.Equal(t, 48, z.KeyLow)
	root, ok := z.KeyRoot.Get()
	assert.True(t, ok)
	assert.Equal(t, 54, root)
	require.Len(t, z.Loops, 1)
	assert.Equal(t, int64(100), z.Loops[0].Start)
	require.NotNil(t, z.Filter)
	assert.Equal(t, model.FilterLowPass, z.Filter.Type)
}

func TestDecodeMissingXMLErrors(t *testing.T) {
	_, err := Decode([]byte("not a zip"), nil)
	assert.Error(t, err)
}
