package ysfc

import (
	"encoding/binary"
	"testing"
)

func be16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func be32(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }

func utf16beForTest(s string) []byte {
	var out []byte
	for _, r := range s {
		out = append(out, be16(uint16(r))...)
	}
	return out
}

func buildWaveformCatalog(entries []waveformEntry) []byte {
	var buf []byte
	buf = append(buf, be32(uint32(len(entries)))...)
	for _, e := range entries {
		buf = append(buf, be32(e.ID)...)
		buf = append(buf, be32(e.SampleRate)...)
		buf = append(buf, be16(e.Channels)...)
		buf = append(buf, be16(e.BitDepth)...)
		buf = append(buf, be32(e.PCMOffset)...)
		buf = append(buf, be32(e.PCMLength)...)
		name := utf16beForTest(e.Name)
		buf = append(buf, be16(uint16(len(name)/2))...)
		buf = append(buf, name...)
	}
	return buf
}

func buildPerformanceCatalog(entries []performanceEntry) []byte {
	var buf []byte
	buf = append(buf, be32(uint32(len(entries)))...)
	for _, p := range entries {
		name := utf16beForTest(p.Name)
		buf = append(buf, be16(uint16(len(name)/2))...)
		buf = append(buf, name...)
		buf = append(buf, be32(uint32(len(p.Zones)))...)
		for _, z := range p.Zones {
			buf = append(buf, byte(z.KeyLow), byte(z.KeyHigh), byte(z.VelLow), byte(z.VelHigh), byte(z.RootNote))
			buf = append(buf, be16(uint16(int16(z.FineTuneCents)))...)
			buf = append(buf, be16(uint16(int16(z.GainDB*100)))...)
			buf = append(buf, byte(int8(z.Pan*100)))
			buf = append(buf, be32(z.WaveformID)...)
		}
	}
	return buf
}

// buildFile assembles a full YSFC file: header + catalog table + catalog
// bodies + a trailing PCM pool the waveform entries' offsets point into.
func buildFile(waveforms []waveformEntry, performances []performanceEntry, pcmPool []byte) []byte {
	waveBody := buildWaveformCatalog(waveforms)
	var perfBody []byte
	hasPerf := performances != nil
	if hasPerf {
		perfBody = buildPerformanceCatalog(performances)
	}

	headerLen := len(magic) + 1 + 4
	catalogCount := 1
	if hasPerf {
		catalogCount = 2
	}
	tableLen := catalogCount * (4 + 4 + 4)
	bodiesStart := uint32(headerLen + tableLen)

	var buf []byte
	buf = append(buf, []byte(magic)...)
	buf = append(buf, 1) // version
	buf = append(buf, be32(uint32(catalogCount))...)
	buf = append(buf, []byte(catalogWaveform)...)
	buf = append(buf, be32(bodiesStart)...)
	buf = append(buf, be32(uint32(len(waveBody)))...)
	if hasPerf {
		buf = append(buf, []byte(catalogPerformance)...)
		buf = append(buf, be32(bodiesStart+uint32(len(waveBody)))...)
		buf = append(buf, be32(uint32(len(perfBody)))...)
	}
	buf = append(buf, waveBody...)
	if hasPerf {
		buf = append(buf, perfBody...)
	}
	pcmStart := uint32(len(buf))
	buf = append(buf, pcmPool...)
	_ = pcmStart
	return buf
}

func TestIsYSFC(t *testing.T) {
	data := buildFile([]waveformEntry{}, nil, nil)
	if !IsYSFC(data) {
		t.Fatal("expected IsYSFC to recognize a built file")
	}
	if IsYSFC([]byte("RIFFxxxxWAVE")) {
		t.Fatal("expected IsYSFC to reject a WAV file")
	}
}

func TestDecodeStandaloneWaveforms(t *testing.T) {
	pcm := make([]byte, 16) // 4 stereo 16-bit frames
	waveforms := []waveformEntry{
		{ID: 1, Name: "Kick", SampleRate: 44100, Channels: 2, BitDepth: 16, PCMOffset: 0, PCMLength: uint32(len(pcm))},
	}
	// PCMOffset is relative to the whole file, so rebuild with an offset
	// computed after we know the header+catalog size.
	probe := buildFile(waveforms, nil, nil)
	waveforms[0].PCMOffset = uint32(len(probe))
	data := buildFile(waveforms, nil, pcm)

	sources, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 standalone instrument, got %d", len(sources))
	}
	if sources[0].Name != "Kick" {
		t.Errorf("name = %q, want Kick", sources[0].Name)
	}
	if len(sources[0].Groups) != 1 || len(sources[0].Groups[0].Zones) != 1 {
		t.Fatalf("unexpected shape: %+v", sources[0])
	}
	meta, err := sources[0].Groups[0].Zones[0].Sample.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.Channels != 2 || meta.SampleRate != 44100 || meta.Frames != 4 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestDecodePerformanceMapsZonesToWaveforms(t *testing.T) {
	pcm := make([]byte, 8)
	waveforms := []waveformEntry{
		{ID: 7, Name: "Snare", SampleRate: 48000, Channels: 1, BitDepth: 16, PCMLength: uint32(len(pcm))},
	}
	performances := []performanceEntry{
		{
			Name: "Kit",
			Zones: []performanceZone{
				{KeyLow: 0, KeyHigh: 127, RootNote: 38, WaveformID: 7},
			},
		},
	}
	probe := buildFile(waveforms, performances, nil)
	waveforms[0].PCMOffset = uint32(len(probe))
	data := buildFile(waveforms, performances, pcm)

	sources, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(sources) != 1 || sources[0].Name != "Kit" {
		t.Fatalf("unexpected sources: %+v", sources)
	}
	zones := sources[0].Groups[0].Zones
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}
	if zones[0].Name != "Snare" {
		t.Errorf("zone name = %q, want Snare (resolved via waveform id)", zones[0].Name)
	}
	if zones[0].Sample == nil {
		t.Fatal("expected zone sample to be wired from the waveform catalog")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	if _, err := Decode([]byte("NOTYSFC!")); err == nil {
		t.Fatal("expected error for bad magic")
	}
}
