package mpc

import (
	"testing"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXPM = `<?xml version="1.0" encoding="UTF-8"?>
<MPCVObject>
  <Program>
    <ProgramName>Bass Kit</ProgramName>
    <Keygroups>
      <Keygroup number="0">
        <Layers>
          <Layer number="0">
            <SampleName>Eb2</SampleName>
            <SampleFile>Eb2.wav</SampleFile>
            <RootNote>Eb2</RootNote>
            <LowNote>0</LowNote>
            <HighNote>127</HighNote>
            <VelStart>0</VelStart>
            <VelEnd>127</VelEnd>
            <Tune>0</Tune>
            <Pan>0</Pan>
            <Volume>0</Volume>
            <SampleStart>0</SampleStart>
            <SampleEnd>44100</SampleEnd>
            <LoopEnabled>false</LoopEnabled>
          </Layer>
        </Layers>
      </Keygroup>
    </Keygroups>
  </Program>
</MPCVObject>`

func TestDecodeRootNoteFollowsEb2Convention(t *testing.T) {
	src, err := Decode([]byte(sampleXPM), nil)
	require.NoError(t, err)
	assert.Equal(t, "Bass Kit", src.Name)
	require.Len(t, src.Groups, 1)
	require.Len(t, src.Groups[0].Zones, 1)

	z := src.Groups[0].Zones[0]
	root, ok := z.KeyRoot.Get()
	require.True(t, ok)
	assert.Equal(t, 39, root, "Eb2 must resolve to MIDI 39, not the B2-substring-match regression (59)")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := model.NewMultiSampleSource("Bass Kit")
	g := model.NewGroup("Keygroup 0")
	z := model.NewZone("Eb2")
	z.Sample = model.NewFileSample("Eb2.wav", nil)
	z.KeyRoot = model.Some(39)
	z.KeyLow, z.KeyHigh = 0, 127
	g.Zones = append(g.Zones, z)
	src.Groups = append(src.Groups, g)

	data, err := Encode(src)
	require.NoError(t, err)

	got, err := Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bass Kit", got.Name)
	require.Len(t, got.Groups, 1)
	require.Len(t, got.Groups[0].Zones, 1)
	root, ok := got.Groups[0].Zones[0].KeyRoot.Get()
	require.True(t, ok)
	assert.Equal(t, 39, root)
}

func TestDecodeRejectsBadXML(t *testing.T) {
	_, err := Decode([]byte("not xml"), nil)
	assert.Error(t, err)
}
