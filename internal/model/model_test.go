package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataCategoryInvariant(t *testing.T) {
	m := NewMetadata()
	m.SetCategory("Bogus")
	assert.Equal(t, CategoryUnknown, m.Category)
	m.SetCategory(CategoryPiano)
	assert.Equal(t, CategoryPiano, m.Category)
}

func TestZoneResolvedKeyRoot(t *testing.T) {
	z := NewZone("a")
	z.KeyLow, z.KeyHigh = 60, 64
	assert.Equal(t, 62, z.ResolvedKeyRoot())
	z.KeyRoot = Some(61)
	assert.Equal(t, 61, z.ResolvedKeyRoot())
}

func TestZoneValidate(t *testing.T) {
	z := NewZone("a")
	z.Start, z.Stop = 0, 100
	require.NoError(t, z.Validate(100))

	z.Stop = 200
	require.Error(t, z.Validate(100))
}

func TestZoneClampKeyVel(t *testing.T) {
	z := NewZone("a")
	z.KeyLow, z.KeyHigh = 70, 60
	z.KeyRoot = Some(200)
	clamped := z.ClampKeyVel()
	assert.True(t, clamped)
	assert.True(t, z.KeyLow <= z.KeyHigh)
	v, _ := z.KeyRoot.Get()
	assert.LessOrEqual(t, v, 127)
}

func TestGroupPrune(t *testing.T) {
	g := NewGroup("g")
	g.Zones = []*Zone{NewZone("a"), nil, NewZone("b")}
	empty := g.Prune()
	assert.False(t, empty)
	assert.Len(t, g.Zones, 2)

	g2 := NewGroup("empty")
	empty = g2.Prune()
	assert.True(t, empty)
}

func TestEnvelopeResolved(t *testing.T) {
	e := NewEnvelope()
	e.Attack = Some(0.5)
	def := DefaultEnvelope(CategoryPiano)
	resolved := e.Resolved(def)
	a, ok := resolved.Attack.Get()
	assert.True(t, ok)
	assert.Equal(t, 0.5, a)
	_, ok = resolved.Decay.Get()
	assert.True(t, ok) // filled from default
}

func TestPruneEmptyGroups(t *testing.T) {
	src := NewMultiSampleSource("inst")
	g1 := NewGroup("full")
	g1.Zones = []*Zone{NewZone("z")}
	g2 := NewGroup("empty")
	src.Groups = []*Group{g1, g2}
	src.PruneEmptyGroups()
	assert.Len(t, src.Groups, 1)
	assert.Equal(t, "full", src.Groups[0].Name)
}

func TestInMemorySample(t *testing.T) {
	s := &InMemorySample{Meta: AudioMetadata{Channels: 1, SampleRate: 44100, BitDepth: 16, Frames: 10}, Data: []byte{1, 2}}
	meta, err := s.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 44100, meta.SampleRate)
	pcm, err := s.PCM()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, pcm)
}

func TestFileSampleLazyLoadAndEvict(t *testing.T) {
	calls := 0
	dec := func(path string) (AudioMetadata, []byte, error) {
		calls++
		return AudioMetadata{Channels: 2, SampleRate: 48000}, []byte{9, 9}, nil
	}
	fs := NewFileSample("x.wav", dec)
	_, err := fs.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	pcm, err := fs.PCM()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, pcm)
	assert.Equal(t, 1, calls) // cached, no second decode

	fs.Evict()
	pcm, err = fs.PCM()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, pcm)
	assert.Equal(t, 2, calls) // reloaded after eviction
}
