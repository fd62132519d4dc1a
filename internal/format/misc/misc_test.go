package misc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTAL(t *testing.T) {
	doc := `<PresetState name="Warm Pad">
  <ZONE file="pad_c3.wav" keyLow="48" keyHigh="60" rootNote="54" velLow="0" velHigh="127" tune="0" volume="0.8" />
</PresetState>`
	src, err := DecodeTAL([]byte(doc), nil)
	require.NoError(t, err)
	assert.Equal(t, "Warm Pad", src.Name)
	require.Len(t, src.Groups[0].Zones, 1)
	z := src.Groups[0].Zones[0]
	assert.Equal(t, 48, z.KeyLow)
	root, ok := z.KeyRoot.Get()
	require.True(t, ok)
	assert.Equal(t, 54, root)
}

func TestDecodeTALRejectsBadXML(t *testing.T) {
	_, err := DecodeTAL([]byte("not xml"), nil)
	assert.Error(t, err)
}

func TestDecodeTX16Wx(t *testing.T) {
	doc := `<Program name="Strings">
  <Zone sample="strings_c4.wav" lowKey="C3" highKey="C5" rootKey="C4" lowVelocity="0" highVelocity="127" transpose="0" gain="0" />
</Program>`
	src, err := DecodeTX16Wx([]byte(doc), nil)
	require.NoError(t, err)
	assert.Equal(t, "Strings", src.Name)
	require.Len(t, src.Groups[0].Zones, 1)
	z := src.Groups[0].Zones[0]
	root, ok := z.KeyRoot.Get()
	require.True(t, ok)
	assert.Equal(t, 60, root)
}

func TestDecodeBitbox(t *testing.T) {
	doc := `{
		"name": "Drum Kit",
		"cells": [
			{"type": "sample", "file": "kick.wav", "lownote": 0, "highnote": 127, "rootnote": 36, "lowvel": 0, "highvel": 127, "gain": 0, "pan": 0},
			{"type": "sequencer"}
		]
	}`
	src, err := DecodeBitbox([]byte(doc), nil)
	require.NoError(t, err)
	assert.Equal(t, "Drum Kit", src.Name)
	require.Len(t, src.Groups[0].Zones, 1, "non-sample cells must be skipped")
	z := src.Groups[0].Zones[0]
	root, ok := z.KeyRoot.Get()
	require.True(t, ok)
	assert.Equal(t, 36, root)
}

func TestDecodeBitboxRejectsBadJSON(t *testing.T) {
	_, err := DecodeBitbox([]byte("not json"), nil)
	assert.Error(t, err)
}

func TestDecodeNNXT(t *testing.T) {
	doc := `# NN-XT patch
Zone
SampleFile kick.wav
KeyLow 0
KeyHigh 127
RootNote 36
VelLow 0
VelHigh 127
Tune 0
Gain 0
Zone
SampleFile snare.wav
KeyLow 0
KeyHigh 127
RootNote 38
`
	src, err := DecodeNNXT([]byte(doc), "Kit", nil)
	require.NoError(t, err)
	require.Len(t, src.Groups[0].Zones, 2)
	assert.Equal(t, "kick.wav", src.Groups[0].Zones[0].Name)
	assert.Equal(t, "snare.wav", src.Groups[0].Zones[1].Name)
	root, ok := src.Groups[0].Zones[1].KeyRoot.Get()
	require.True(t, ok)
	assert.Equal(t, 38, root)
}
