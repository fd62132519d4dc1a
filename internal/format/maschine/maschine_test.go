package maschine

import (
	"testing"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/locator"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

func buildArchive(version uint32, rows map[uint32][]byte) []byte {
	a := &archive{Version: version, Minor: 0, Rows: rows}
	for idx := range rows {
		a.Order = append(a.Order, idx)
	}
	return emitArchive(a)
}

func TestIsArchive(t *testing.T) {
	data := buildArchive(0x0D, map[uint32][]byte{rowName: []byte("Kit\x00")})
	if !IsArchive(data) {
		t.Fatal("expected IsArchive to recognize a freshly emitted archive")
	}
	if IsArchive([]byte("not an archive")) {
		t.Fatal("expected IsArchive to reject unrelated bytes")
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	rows := map[uint32][]byte{
		rowName:      []byte("My Kit\x00"),
		rowSoundInfo: emitSoundInfo(soundInfo{PitchBendCents: 200, AmpReleaseMS: 500}),
	}
	data := buildArchive(0x0D, rows)
	parsed, err := parseArchive(data)
	if err != nil {
		t.Fatalf("parseArchive: %v", err)
	}
	if parsed.Version != 0x0D {
		t.Errorf("version = %d, want 0x0D", parsed.Version)
	}
	info, err := parseSoundInfo(parsed.Rows[rowSoundInfo])
	if err != nil {
		t.Fatalf("parseSoundInfo: %v", err)
	}
	if info.PitchBendCents != 200 || info.AmpReleaseMS != 500 {
		t.Errorf("soundInfo round trip mismatch: %+v", info)
	}
}

func TestLayoutSelection(t *testing.T) {
	if layoutForVersion(0x0C) != LayoutPre0x0D {
		t.Error("version 0x0C should select LayoutPre0x0D")
	}
	if layoutForVersion(0x0D) != LayoutV0x0DPlus {
		t.Error("version 0x0D should select LayoutV0x0DPlus")
	}
	if LayoutPre0x0D.zoneBlockSize() != 59 {
		t.Errorf("pre-0x0D block size = %d, want 59", LayoutPre0x0D.zoneBlockSize())
	}
	if LayoutV0x0DPlus.zoneBlockSize() != 80 {
		t.Errorf("0x0D+ block size = %d, want 80", LayoutV0x0DPlus.zoneBlockSize())
	}
}

func TestZoneBlockRoundTripBothLayouts(t *testing.T) {
	z := zoneRecord{
		KeyLow: 10, KeyHigh: 20, VelLow: 0, VelHigh: 127, RootNote: 15,
		FineTuneCents: -25, GainDB: 2.5, Pan: 0.5,
		LoopOn: true, LoopStart: 100, LoopEnd: 2000,
		SampleName: "kick.wav", AmpAttackMS: 5, AmpReleaseMS: 250,
	}
	for _, layout := range []Layout{LayoutPre0x0D, LayoutV0x0DPlus} {
		block := emitZoneBlock(z, layout)
		if len(block) != layout.zoneBlockSize() {
			t.Fatalf("layout %v: block size = %d, want %d", layout, len(block), layout.zoneBlockSize())
		}
		got, err := parseZoneBlock(block, layout)
		if err != nil {
			t.Fatalf("layout %v: parseZoneBlock: %v", layout, err)
		}
		if got.KeyLow != z.KeyLow || got.KeyHigh != z.KeyHigh || got.RootNote != z.RootNote {
			t.Errorf("layout %v: mapping mismatch: %+v", layout, got)
		}
		if got.SampleName != z.SampleName {
			t.Errorf("layout %v: sample name = %q, want %q", layout, got.SampleName, z.SampleName)
		}
		if !got.LoopOn || got.LoopStart != 100 || got.LoopEnd != 2000 {
			t.Errorf("layout %v: loop mismatch: %+v", layout, got)
		}
	}
}

func TestDecodeBuildsZonesFromArchive(t *testing.T) {
	zones := []zoneRecord{
		{KeyLow: 0, KeyHigh: 63, RootNote: 36, SampleName: "kick.wav", AmpAttackMS: 1, AmpReleaseMS: 100},
		{KeyLow: 64, KeyHigh: 127, RootNote: 38, SampleName: "snare.wav", AmpAttackMS: 1, AmpReleaseMS: 120},
	}
	rows := map[uint32][]byte{
		rowName:      []byte("Kit\x00"),
		rowSoundInfo: emitSoundInfo(soundInfo{FilterType: model.FilterLowPass, AmpReleaseMS: 400}),
		rowZones:     emitZonesRow(zones, LayoutV0x0DPlus),
	}
	data := buildArchive(0x0D, rows)

	src, err := Decode(data, "/presets", nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if src.Name != "Kit" {
		t.Errorf("name = %q, want Kit", src.Name)
	}
	if len(src.Groups) != 1 || len(src.Groups[0].Zones) != 2 {
		t.Fatalf("unexpected shape: %+v", src)
	}
	if src.Groups[0].Zones[0].ResolvedKeyRoot() != 36 {
		t.Errorf("zone0 root = %d, want 36", src.Groups[0].Zones[0].ResolvedKeyRoot())
	}
}

func TestEmitFromTemplateProducesDecodableArchive(t *testing.T) {
	templateZones := []zoneRecord{{KeyLow: 0, KeyHigh: 127, RootNote: 60, SampleName: "old.wav"}}
	template := buildArchive(0x0D, map[uint32][]byte{
		rowName:      []byte("Template\x00"),
		rowSoundInfo: emitSoundInfo(soundInfo{}),
		rowZones:     emitZonesRow(templateZones, LayoutV0x0DPlus),
	})

	src := model.NewMultiSampleSource("New Kit")
	g := model.NewGroup("Main")
	z := model.NewZone("clap")
	z.KeyLow, z.KeyHigh = 0, 127
	z.Sample = model.NewFileSample("clap.wav", func(string) (model.AudioMetadata, []byte, error) {
		return model.AudioMetadata{}, nil, nil
	})
	g.Zones = append(g.Zones, z)
	src.Groups = append(src.Groups, g)

	out, err := EmitFromTemplate(template, src)
	if err != nil {
		t.Fatalf("EmitFromTemplate: %v", err)
	}
	if !IsArchive(out) {
		t.Fatal("emitted data is not recognized as an archive")
	}

	resolver := &locator.Resolver{PresetDir: "/presets"}
	decoded, err := parseArchive(out)
	if err != nil {
		t.Fatalf("parseArchive(emitted): %v", err)
	}
	got, err := archiveToModel(decoded, layoutForVersion(decoded.Version), resolver)
	if err != nil {
		t.Fatalf("archiveToModel: %v", err)
	}
	if got.Name != "New Kit" {
		t.Errorf("round-tripped name = %q, want New Kit", got.Name)
	}
	if len(got.Groups) != 1 || len(got.Groups[0].Zones) != 1 {
		t.Fatalf("unexpected shape after template splice: %+v", got)
	}
}
