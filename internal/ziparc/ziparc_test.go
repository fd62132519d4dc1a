package ziparc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredZipRoundTrip(t *testing.T) {
	var buf bytesBufferShim
	entries := []Entry{
		{Name: "multisample.xml", Data: []byte("<xml/>"), Modified: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "a.wav", Data: []byte{1, 2, 3, 4}, Modified: time.Now()},
	}
	require.NoError(t, WriteStoredZip(&buf, entries))

	read, err := ReadZip(buf.b)
	require.NoError(t, err)
	assert.Equal(t, []byte("<xml/>"), read["multisample.xml"])
	assert.Equal(t, []byte{1, 2, 3, 4}, read["a.wav"])
}

func TestGzipRoundTrip(t *testing.T) {
	orig := []byte("some xml content")
	compressed, err := GzipCompress(orig)
	require.NoError(t, err)
	decompressed, err := GzipDecompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, orig, decompressed)
}

func TestZlibRoundTrip(t *testing.T) {
	orig := []byte("preset chunk tree payload")
	compressed, err := ZlibCompress(orig)
	require.NoError(t, err)
	decompressed, err := ZlibDecompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, orig, decompressed)
}

type bytesBufferShim struct{ b []byte }

func (s *bytesBufferShim) Write(p []byte) (int, error) {
	s.b = append(s.b, p...)
	return len(p), nil
}
