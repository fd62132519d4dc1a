package notekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMIDIToName(t *testing.T) {
	assert.Equal(t, "C4", MIDIToName(60))
	assert.Equal(t, "A0", MIDIToName(21))
}

func TestParseNoteNameSharpsAndFlats(t *testing.T) {
	n, ok := ParseNoteName("C4")
	assert.True(t, ok)
	assert.Equal(t, 60, n)

	n, ok = ParseNoteName("D#2")
	assert.True(t, ok)
	assert.Equal(t, 39, n)
}

func TestParseNoteNameEb2IsNotB2Bug(t *testing.T) {
	// spec §8 scenario S6: "Eb2" must resolve to MIDI 39, the documented
	// regression parsed the trailing "B2" and produced 59.
	n, ok := ParseNoteName("Eb2")
	assert.True(t, ok)
	assert.Equal(t, 39, n)
	assert.NotEqual(t, 59, n)
}

func TestParseNoteNameBareInteger(t *testing.T) {
	n, ok := ParseNoteName("72")
	assert.True(t, ok)
	assert.Equal(t, 72, n)
}

func TestParseNoteNameInvalid(t *testing.T) {
	_, ok := ParseNoteName("")
	assert.False(t, ok)
	_, ok = ParseNoteName("Zz9")
	assert.False(t, ok)
}
