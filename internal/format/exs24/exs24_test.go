package exs24

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmitRoundTrip(t *testing.T) {
	blocks := []Block{
		{Type: BlockHeader, Payload: []byte{1, 2, 3, 4}},
		{Type: BlockZone, Payload: make([]byte, 20)},
	}
	data := Emit(blocks)
	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, BlockHeader, parsed[0].Type)
	assert.Equal(t, []byte{1, 2, 3, 4}, parsed[0].Payload)
}

func TestZoneToModelAppliesTuneAndLoop(t *testing.T) {
	zone := ZoneRecord{
		Name: "Zone1", RootNote: 60, KeyLow: 48, KeyHigh: 72,
		VelLow: 0, VelHigh: 127, Tune: 1, FineTune: 50,
		LoopStart: 100, LoopEnd: 2000, LoopOn: true,
	}
	sample := SampleRecord{Name: "s1", Path: "/Library/Samples/s1.aif", SampleRate: 44100, BitDepth: 16, Channels: 1}

	mz := ZoneToModel(zone, sample, nil)
	assert.Equal(t, 60, mz.KeyLow+12) // sanity: KeyLow set, not derived here
	root, ok := mz.KeyRoot.Get()
	assert.True(t, ok)
	assert.Equal(t, 60, root)
	assert.InDelta(t, 1.5, mz.Tune, 0.001)
	require.Len(t, mz.Loops, 1)
	assert.Equal(t, int64(100), mz.Loops[0].Start)
}
