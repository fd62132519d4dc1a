package ableton

import (
	"testing"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/ziparc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<Ableton>
  <MultiSampler UserName="Warm Pad">
    <MultiSampleMap>
      <SampleParts>
        <MultiSamplePart Name="pad_c3" RootKey="54" Detune="0" Volume="0" Panorama="0" SampleStart="0" SampleEnd="44100">
          <KeyRange Min="48" Max="60" />
          <VelocityRange Min="0" Max="127" />
          <SampleRef>
            <FileRef Path="Samples/pad_c3.wav" />
          </SampleRef>
          <Loop On="true" Start="100" End="5000" />
        </MultiSamplePart>
      </SampleParts>
    </MultiSampleMap>
  </MultiSampler>
</Ableton>`

func TestIsAbletonPreset(t *testing.T) {
	gz, err := ziparc.GzipCompress([]byte(sampleXML))
	require.NoError(t, err)
	assert.True(t, IsAbletonPreset(gz))
	assert.False(t, IsAbletonPreset([]byte("<?xml")))
}

func TestDecode(t *testing.T) {
	gz, err := ziparc.GzipCompress([]byte(sampleXML))
	require.NoError(t, err)

	src, err := Decode(gz, "fallback", nil)
	require.NoError(t, err)
	assert.Equal(t, "Warm Pad", src.Name)
	require.Len(t, src.Groups, 1)
	require.Len(t, src.Groups[0].Zones, 1)

	z := src.Groups[0].Zones[0]
	assert.Equal(t, 48, z.KeyLow)
	assert.Equal(t, 60, z.KeyHigh)
	root, ok := z.KeyRoot.Get()
	assert.True(t, ok)
	assert.Equal(t, 54, root)
	require.Len(t, z.Loops, 1)
	assert.Equal(t, int64(100), z.Loops[0].Start)
}

func TestDecodeRejectsBadGzip(t *testing.T) {
	_, err := Decode([]byte("not gzip"), "fallback", nil)
	assert.Error(t, err)
}

func TestDecodeFallsBackToGivenNameWhenUserNameMissing(t *testing.T) {
	xmlDoc := `<Ableton><MultiSampler UserName=""><MultiSampleMap><SampleParts></SampleParts></MultiSampleMap></MultiSampler></Ableton>`
	gz, err := ziparc.GzipCompress([]byte(xmlDoc))
	require.NoError(t, err)

	src, err := Decode(gz, "fallback-name", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback-name", src.Name)
}
