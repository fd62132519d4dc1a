package byteio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.FourCC("RIFF"))
	require.NoError(t, w.U32(12345))
	require.NoError(t, w.I32(-7))
	require.NoError(t, w.PString("hello"))
	require.NoError(t, w.CString("world"))

	r := NewReader(bytes.NewReader(buf.Bytes()), "test.bin")
	id, err := r.FourCC()
	require.NoError(t, err)
	assert.Equal(t, "RIFF", id)

	u, err := r.U32()
	require.NoError(t, err)
	assert.EqualValues(t, 12345, u)

	i, err := r.I32()
	require.NoError(t, err)
	assert.EqualValues(t, -7, i)

	s, err := r.PString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	cs, err := r.CString(32)
	require.NoError(t, err)
	assert.Equal(t, "world", cs)
}

func TestBigEndian(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{W: &buf, BigEndian: true}
	require.NoError(t, w.U16(0x0102))

	r := &Reader{R: bytes.NewReader(buf.Bytes()), BigEndian: true}
	v, err := r.U16()
	require.NoError(t, err)
	assert.EqualValues(t, 0x0102, v)
}

func TestDecodeUTF16LE(t *testing.T) {
	// "Hi" in UTF-16LE
	b := []byte{'H', 0, 'i', 0}
	s, err := DecodeUTF16LE(b)
	require.NoError(t, err)
	assert.Equal(t, "Hi", s)
}

func TestDecodeWindows1252(t *testing.T) {
	assert.Equal(t, "KICK", DecodeWindows1252([]byte("KICK\x00\x00")))
}

func TestTruncatedReadReportsError(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x01}), "short.bin")
	_, err := r.U32()
	require.Error(t, err)
}
