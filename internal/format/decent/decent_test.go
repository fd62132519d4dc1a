package decent

import (
	"testing"
	"time"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePresetToleratesLeadingComments(t *testing.T) {
	data := []byte(`<!-- exported by Acme --><?xml version="1.0"?>
<DecentSampler>
  <groups>
    <group name="Keys">
      <sample path="Samples/C3.wav" loNote="Eb2" hiNote="72" rootNote="60" loVel="0" hiVel="127"/>
    </group>
  </groups>
</DecentSampler>`)

	src, err := DecodePreset(data, "Keys Preset", nil)
	require.NoError(t, err)
	require.Len(t, src.Groups, 1)
	require.Len(t, src.Groups[0].Zones, 1)
	z := src.Groups[0].Zones[0]
	assert.Equal(t, 39, z.KeyLow) // "Eb2" text name
	assert.Equal(t, 72, z.KeyHigh)
}

func TestEncodeDecodePresetRoundTrip(t *testing.T) {
	src := model.NewMultiSampleSource("Test")
	g := model.NewGroup("Main")
	z := model.NewZone("kick.wav")
	z.Sample = model.NewFileSample("/abs/path/kick.wav", nil)
	z.KeyLow, z.KeyHigh = 36, 36
	z.KeyRoot = model.Some(36)
	g.Zones = append(g.Zones, z)
	src.Groups = append(src.Groups, g)

	xmlBytes, err := EncodePreset(src)
	require.NoError(t, err)

	got, err := DecodePreset(xmlBytes, "Test", nil)
	require.NoError(t, err)
	require.Len(t, got.Groups[0].Zones, 1)
	assert.Equal(t, 36, got.Groups[0].Zones[0].KeyLow)
}

func TestEncodeDecodeLibraryRoundTrip(t *testing.T) {
	src := model.NewMultiSampleSource("LibItem")
	g := model.NewGroup("G")
	z := model.NewZone("s.wav")
	z.Sample = model.NewFileSample("s.wav", nil)
	g.Zones = append(g.Zones, z)
	src.Groups = append(src.Groups, g)

	archive, err := EncodeLibrary([]*model.MultiSampleSource{src}, map[string][]byte{"s.wav": {1, 2}}, time.Now())
	require.NoError(t, err)

	decoded, err := DecodeLibrary(archive, nil)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "LibItem", decoded[0].Name)
}
