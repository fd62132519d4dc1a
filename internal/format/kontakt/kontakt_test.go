package kontakt

import (
	"testing"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/locator"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

func TestDetectVersionLegacyFamilies(t *testing.T) {
	cases := []struct {
		versionByte byte
		want        Version
	}{
		{1, Version1},
		{2, Version1_5},
		{3, Version2to4_1},
	}
	for _, c := range cases {
		header := append([]byte(legacyMagic), c.versionByte)
		got, err := DetectVersion(header)
		if err != nil {
			t.Fatalf("DetectVersion(%v): %v", c.versionByte, err)
		}
		if got != c.want {
			t.Errorf("DetectVersion(%v) = %v, want %v", c.versionByte, got, c.want)
		}
	}
}

func TestDetectVersionPresetChunkFamilies(t *testing.T) {
	old := append([]byte(presetChunkMagic), 4)
	got, err := DetectVersion(old)
	if err != nil || got != Version4_2Plus {
		t.Fatalf("DetectVersion(4.2) = %v, %v, want Version4_2Plus", got, err)
	}
	newer := append([]byte(presetChunkMagic), 6)
	got, err = DetectVersion(newer)
	if err != nil || got != Version5to7 {
		t.Fatalf("DetectVersion(5-7) = %v, %v, want Version5to7", got, err)
	}
}

func TestDetectVersionRejectsUnknown(t *testing.T) {
	if _, err := DetectVersion([]byte("XXXX1")); err == nil {
		t.Fatal("expected error for unrecognized magic")
	}
	if _, err := DetectVersion([]byte("abc")); err == nil {
		t.Fatal("expected error for short header")
	}
	if _, err := DetectVersion(append([]byte(legacyMagic), 9)); err == nil {
		t.Fatal("expected error for unknown legacy version byte")
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	programs := []ProgramRecord{
		{
			Name: "Grand Piano",
			Groups: []GroupRecord{
				{
					Name: "Layer 1",
					Zones: []ZoneRecord{
						{
							KeyLow: 0, KeyHigh: 60, VelLow: 0, VelHigh: 127,
							RootNote: 48, FineTuneCents: -5, GainDB: 1.5, Pan: -0.25,
							LoopOn: true, LoopStart: 1000, LoopEnd: 5000,
							SampleRef: "samples\\piano-c3.wav",
						},
						{
							KeyLow: 61, KeyHigh: 127, VelLow: 0, VelHigh: 127,
							RootNote: 72, SampleRef: "samples\\piano-c5.wav",
						},
					},
				},
			},
		},
	}

	data := EmitLegacy(programs)
	version, err := DetectVersion(data)
	if err != nil {
		t.Fatalf("DetectVersion: %v", err)
	}
	if version != Version1 {
		t.Fatalf("version = %v, want Version1", version)
	}

	parsed, samplePaths, err := parseLegacy(data)
	if err != nil {
		t.Fatalf("parseLegacy: %v", err)
	}
	if len(parsed) != 1 || len(parsed[0].Groups) != 1 || len(parsed[0].Groups[0].Zones) != 2 {
		t.Fatalf("unexpected shape: %+v", parsed)
	}
	if parsed[0].Name != "Grand Piano" {
		t.Errorf("program name = %q", parsed[0].Name)
	}

	z0 := parsed[0].Groups[0].Zones[0]
	if z0.KeyHigh != 60 || z0.RootNote != 48 || z0.FineTuneCents != -5 {
		t.Errorf("zone0 mapping mismatch: %+v", z0)
	}
	if !z0.LoopOn || z0.LoopStart != 1000 || z0.LoopEnd != 5000 {
		t.Errorf("zone0 loop mismatch: %+v", z0)
	}

	idx, err := parseSampleIndex(z0.SampleRef)
	if err != nil || idx < 0 || idx >= len(samplePaths) {
		t.Fatalf("zone0 sample index invalid: %q (%v)", z0.SampleRef, err)
	}
	if samplePaths[idx] != "samples\\piano-c3.wav" {
		t.Errorf("samplePaths[%d] = %q, want samples\\piano-c3.wav", idx, samplePaths[idx])
	}

	z1 := parsed[0].Groups[0].Zones[1]
	idx1, err := parseSampleIndex(z1.SampleRef)
	if err != nil || idx1 < 0 || idx1 >= len(samplePaths) {
		t.Fatalf("zone1 sample index invalid: %q (%v)", z1.SampleRef, err)
	}
	if samplePaths[idx1] != "samples\\piano-c5.wav" {
		t.Errorf("samplePaths[%d] = %q, want samples\\piano-c5.wav", idx1, samplePaths[idx1])
	}
}

func TestLegacyDedupesRepeatedSamplePaths(t *testing.T) {
	programs := []ProgramRecord{
		{
			Name: "Kit",
			Groups: []GroupRecord{
				{
					Name: "Layer",
					Zones: []ZoneRecord{
						{KeyLow: 0, KeyHigh: 63, SampleRef: "snare.wav"},
						{KeyLow: 64, KeyHigh: 127, SampleRef: "snare.wav"},
					},
				},
			},
		},
	}
	data := EmitLegacy(programs)
	_, samplePaths, err := parseLegacy(data)
	if err != nil {
		t.Fatalf("parseLegacy: %v", err)
	}
	if len(samplePaths) != 1 {
		t.Fatalf("expected one deduped sample path, got %v", samplePaths)
	}
}

func TestPresetChunkRoundTrip(t *testing.T) {
	chunks := []PresetChunk{
		{
			ID:        chunkProgram,
			Container: true,
			Children: []PresetChunk{
				{ID: chunkName, Payload: []byte{'A', 0, 'B', 0}},
				{
					ID:        chunkGroup,
					Container: true,
					Children: []PresetChunk{
						{ID: chunkZone, Payload: []byte{1, 2, 3}},
					},
				},
			},
		},
	}
	emitted := EmitPresetChunks(chunks)
	parsed, err := ParsePresetChunks(emitted)
	if err != nil {
		t.Fatalf("ParsePresetChunks: %v", err)
	}
	if len(parsed) != 1 || !parsed[0].Container || parsed[0].ID != chunkProgram {
		t.Fatalf("top-level mismatch: %+v", parsed)
	}
	if len(parsed[0].Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(parsed[0].Children))
	}
	group := parsed[0].Children[1]
	if group.ID != chunkGroup || !group.Container || len(group.Children) != 1 {
		t.Fatalf("group mismatch: %+v", group)
	}
	zone := group.Children[0]
	if zone.ID != chunkZone || zone.Container {
		t.Fatalf("zone mismatch: %+v", zone)
	}
	if string(zone.Payload) != string([]byte{1, 2, 3}) {
		t.Errorf("zone payload = %v", zone.Payload)
	}
}

func TestFileListDecode(t *testing.T) {
	chunks := []PresetChunk{
		{ID: chunkFileList, Payload: encodeFileListForTest([]string{"a/b.wav", "c.wav"})},
	}
	got := findFileList(chunks)
	if len(got) != 2 || got[0] != "a/b.wav" || got[1] != "c.wav" {
		t.Fatalf("findFileList = %v", got)
	}
}

func encodeFileListForTest(names []string) []byte {
	var buf []byte
	put32 := func(v uint32) {
		buf = append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	put16 := func(v uint16) {
		buf = append(buf, byte(v), byte(v>>8))
	}
	put32(uint32(len(names)))
	for _, n := range names {
		encoded := utf16leForTest(n)
		put16(uint16(len(encoded) / 2))
		buf = append(buf, encoded...)
	}
	return buf
}

func utf16leForTest(s string) []byte {
	var out []byte
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}

func TestProgramsToModelResolvesFileAndMonolithZones(t *testing.T) {
	rawFile := []byte("RIFFxxxxWAVEmonolithplaceholderbytes")
	programs := []ProgramRecord{
		{
			Name: "Layered",
			Groups: []GroupRecord{
				{
					Name: "Main",
					Zones: []ZoneRecord{
						{KeyLow: 0, KeyHigh: 63, SampleRef: "0"},
						{KeyLow: 64, KeyHigh: 127, IsMonolith: true, MonolithOffset: 4, MonolithLength: 8},
					},
				},
			},
		},
	}
	fileList := []string{"piano.wav"}
	resolver := &locator.Resolver{PresetDir: "/does/not/matter"}

	sources, err := programsToModel(programs, fileList, resolver, rawFile)
	if err != nil {
		t.Fatalf("programsToModel: %v", err)
	}
	if len(sources) != 1 || len(sources[0].Groups) != 1 || len(sources[0].Groups[0].Zones) != 2 {
		t.Fatalf("unexpected shape: %+v", sources)
	}

	fileZone := sources[0].Groups[0].Zones[0]
	if fileZone.Sample == nil {
		t.Fatal("expected a sample source on the file-referenced zone")
	}
	fs, ok := fileZone.Sample.(*model.FileSample)
	if !ok {
		t.Fatalf("expected *model.FileSample, got %T", fileZone.Sample)
	}
	if fs.Path != "piano.wav" {
		t.Errorf("resolved path = %q, want piano.wav (via fileList substitution)", fs.Path)
	}

	monolithZone := sources[0].Groups[0].Zones[1]
	if monolithZone.Sample == nil {
		t.Fatal("expected a sample source on the monolith zone")
	}
	if _, ok := monolithZone.Sample.(*model.FileSample); !ok {
		t.Fatalf("expected monolith zone to be wrapped as *model.FileSample, got %T", monolithZone.Sample)
	}
}

func TestDecodeMonolithWindowRejectsOutOfBounds(t *testing.T) {
	_, _, err := decodeMonolithWindow([]byte{1, 2, 3}, 0, 10)
	if err == nil {
		t.Fatal("expected bounds error")
	}
}
