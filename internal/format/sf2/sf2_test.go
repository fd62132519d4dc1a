package sf2

import (
	"testing"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSource() *model.MultiSampleSource {
	src := model.NewMultiSampleSource("Bright Keys")
	g := model.NewGroup("Layer")
	z := model.NewZone("keys_c3.wav")
	z.Sample = &model.InMemorySample{
		Meta: model.AudioMetadata{Channels: 1, SampleRate: 44100, BitDepth: 16, Frames: 4},
		Data: []byte{0, 0, 10, 0, 20, 0, 30, 0},
	}
	z.KeyLow, z.KeyHigh = 48, 60
	z.KeyRoot = model.Some(54)
	z.VelLow, z.VelHigh = 0, 127
	z.Panning = 0.2
	z.Gain = -3.0
	z.Tune = 1.5
	z.Loops = append(z.Loops, model.Loop{Type: model.LoopForward, Start: 1, End: 3})
	z.AmpEnv.Envelope.Attack = model.Some(0.05)
	z.AmpEnv.Envelope.Sustain = model.Some(0.8)
	g.Zones = append(g.Zones, z)
	src.Groups = append(src.Groups, g)
	return src
}

func TestEmitBankThenParseRecoversStructure(t *testing.T) {
	src := buildSource()
	data, err := EmitBank([]*model.MultiSampleSource{src})
	require.NoError(t, err)

	bank, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, bank.Presets, 1)
	require.Len(t, bank.Instruments, 1)
	require.Len(t, bank.Samples, 1)
	assert.Equal(t, "Bright Keys", bank.Presets[0].Name)
	assert.Equal(t, "Layer", bank.Instruments[0].Name)
}

func TestEmitBankToModelRoundTripsZoneShape(t *testing.T) {
	src := buildSource()
	data, err := EmitBank([]*model.MultiSampleSource{src})
	require.NoError(t, err)

	bank, err := Parse(data)
	require.NoError(t, err)

	out := ToModel(bank, func(sh SampleHeader) model.SampleSource {
		return &model.InMemorySample{Data: make([]byte, (sh.End-sh.Start)*2)}
	})
	require.Len(t, out, 1)
	require.Len(t, out[0].Groups, 1)
	require.Len(t, out[0].Groups[0].Zones, 1)
	z := out[0].Groups[0].Zones[0]
	assert.Equal(t, 48, z.KeyLow)
	assert.Equal(t, 60, z.KeyHigh)
	root, ok := z.KeyRoot.Get()
	require.True(t, ok)
	assert.Equal(t, 54, root)
	require.Len(t, z.Loops, 1)
	assert.InDelta(t, 0.2, z.Panning, 0.01)
	assert.InDelta(t, -3.0, z.Gain, 0.2)
}

func TestParseRejectsNonSF2Form(t *testing.T) {
	_, err := Parse([]byte("not a riff at all"))
	assert.Error(t, err)
}
