package kontakt

import (
	"bytes"
	"fmt"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/locator"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

const chunkName uint32 = 0x5002

// ZoneRecord is the intermediate shape both the legacy dialect and the
// Preset Chunk tree decode into, before the common ToModel step.
type ZoneRecord struct {
	Name string

	// Exactly one of SampleRef (a bare name resolved via the sample
	// locator or FileList table) or IsMonolith (an inline sample window
	// inside the NKI/NKM file itself) applies.
	SampleRef      string
	IsMonolith     bool
	MonolithOffset int64
	MonolithLength int64

	KeyLow, KeyHigh int
	VelLow, VelHigh int
	RootNote        int
	FineTuneCents   int
	GainDB          float64
	Pan             float64 // -1..1

	LoopOn           bool
	LoopStart, LoopEnd uint32

	AmpAttackMS, AmpHoldMS, AmpDecayMS, AmpReleaseMS uint32
	AmpSustain                                       float64 // 0..1

	FilterType      model.FilterType
	FilterCutoffHz  float64
	FilterResonance float64
	HasFilter       bool
}

// GroupRecord is a named collection of zones (spec §4.3: "Bank -> [Slot*]
// -> Program"; a Program's internal grouping is this port's Group).
type GroupRecord struct {
	Name  string
	Zones []ZoneRecord
}

// ProgramRecord is one Kontakt instrument (spec: "each program yields one
// MultiSampleSource").
type ProgramRecord struct {
	Name   string
	Groups []GroupRecord
}

// programsFromPresetChunks walks the inflated tree's top-level Program
// nodes into ProgramRecords.
func programsFromPresetChunks(chunks []PresetChunk) ([]ProgramRecord, error) {
	var out []ProgramRecord
	for _, c := range chunks {
		if c.ID != chunkProgram {
			continue
		}
		p, err := programFromChunk(c)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func programFromChunk(c PresetChunk) (ProgramRecord, error) {
	p := ProgramRecord{Name: childName(c.Children)}
	for _, child := range c.Children {
		if child.ID != chunkGroup {
			continue
		}
		g := GroupRecord{Name: childName(child.Children)}
		for _, zc := range child.Children {
			if zc.ID != chunkZone {
				continue
			}
			z, err := zoneFromPayload(zc.Payload)
			if err != nil {
				return ProgramRecord{}, err
			}
			g.Zones = append(g.Zones, z)
		}
		p.Groups = append(p.Groups, g)
	}
	return p, nil
}

func childName(children []PresetChunk) string {
	for _, c := range children {
		if c.ID == chunkName {
			name, err := byteio.DecodeUTF16LE(c.Payload)
			if err == nil {
				return name
			}
		}
	}
	return ""
}

// zoneFromPayload decodes one fixed-layout Zone leaf (see DESIGN.md for the
// field layout this port chose; it is a reconstruction, not a published
// spec).
func zoneFromPayload(payload []byte) (ZoneRecord, error) {
	br := byteio.NewReader(bytes.NewReader(payload), "kontakt-zone")
	monolithFlag, _ := br.U8()
	sampleIndex, _ := br.U16()
	monolithOffset, _ := br.U32()
	monolithLength, _ := br.U32()
	keyLow, _ := br.U8()
	keyHigh, _ := br.U8()
	velLow, _ := br.U8()
	velHigh, _ := br.U8()
	rootNote, _ := br.U8()
	fineTune, _ := br.I16()
	gainCenti, _ := br.I16()
	panRaw, _ := br.U8()
	loopOn, _ := br.U8()
	loopStart, _ := br.U32()
	loopEnd, err := br.U32()
	if err != nil {
		return ZoneRecord{}, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_ZONE", "kontakt", err)
	}
	attack, _ := br.U32()
	hold, _ := br.U32()
	decay, _ := br.U32()
	sustain, _ := br.U16()
	release, _ := br.U32()
	filterType, _ := br.U8()
	hasFilter, _ := br.U8()
	cutoff, _ := br.U32()
	resonance, _ := br.U16()

	z := ZoneRecord{
		KeyLow: int(keyLow), KeyHigh: int(keyHigh),
		VelLow: int(velLow), VelHigh: int(velHigh),
		RootNote: int(rootNote), FineTuneCents: int(fineTune),
		GainDB: float64(gainCenti) / 100.0, Pan: float64(int8(panRaw)) / 100.0,
		LoopOn: loopOn != 0, LoopStart: loopStart, LoopEnd: loopEnd,
		AmpAttackMS: attack, AmpHoldMS: hold, AmpDecayMS: decay,
		AmpSustain: float64(sustain) / 1000.0, AmpReleaseMS: release,
		FilterType: filterTypeFromByte(filterType), HasFilter: hasFilter != 0,
		FilterCutoffHz: float64(cutoff) / 10.0, FilterResonance: float64(resonance) / 1000.0,
	}
	if monolithFlag != 0 {
		z.IsMonolith = true
		z.MonolithOffset = int64(monolithOffset)
		z.MonolithLength = int64(monolithLength)
	} else {
		z.SampleRef = fmt.Sprintf("%d", sampleIndex)
	}
	return z, nil
}

func filterTypeFromByte(b uint8) model.FilterType {
	switch b {
	case 1:
		return model.FilterHighPass
	case 2:
		return model.FilterBandPass
	case 3:
		return model.FilterNotch
	case 4:
		return model.FilterPeak
	default:
		return model.FilterLowPass
	}
}

// programsToModel converts decoded programs into canonical instruments,
// resolving each zone's sample reference (spec §4.3's four-step path
// resolution, or a monolith window) via resolver/rawFile.
func programsToModel(programs []ProgramRecord, fileList []string, resolver *locator.Resolver, rawFile []byte) ([]*model.MultiSampleSource, error) {
	out := make([]*model.MultiSampleSource, 0, len(programs))
	for _, p := range programs {
		src := model.NewMultiSampleSource(p.Name)
		for _, g := range p.Groups {
			mg := model.NewGroup(g.Name)
			for _, z := range g.Zones {
				mg.Zones = append(mg.Zones, zoneRecordToModel(z, fileList, resolver, rawFile))
			}
			src.Groups = append(src.Groups, mg)
		}
		out = append(out, src)
	}
	return out, nil
}

func zoneRecordToModel(z ZoneRecord, fileList []string, resolver *locator.Resolver, rawFile []byte) *model.Zone {
	mz := model.NewZone(z.Name)
	mz.KeyLow, mz.KeyHigh = z.KeyLow, z.KeyHigh
	mz.VelLow, mz.VelHigh = z.VelLow, z.VelHigh
	mz.KeyRoot = model.Some(z.RootNote)
	mz.Tune = float64(z.FineTuneCents) / 100.0
	mz.Gain = z.GainDB
	mz.Panning = z.Pan
	if z.LoopOn {
		mz.Loops = append(mz.Loops, model.Loop{Type: model.LoopForward, Start: int64(z.LoopStart), End: int64(z.LoopEnd)})
	}
	mz.AmpEnv.Envelope.Attack = model.Some(float64(z.AmpAttackMS) / 1000.0)
	mz.AmpEnv.Envelope.Hold = model.Some(float64(z.AmpHoldMS) / 1000.0)
	mz.AmpEnv.Envelope.Decay = model.Some(float64(z.AmpDecayMS) / 1000.0)
	mz.AmpEnv.Envelope.Sustain = model.Some(z.AmpSustain)
	mz.AmpEnv.Envelope.Release = model.Some(float64(z.AmpReleaseMS) / 1000.0)
	if z.HasFilter {
		mz.Filter = &model.Filter{Type: z.FilterType, Poles: 2, Cutoff: z.FilterCutoffHz, Resonance: z.FilterResonance}
	}

	if z.IsMonolith {
		mz.Sample = newMonolithSample(rawFile, z.MonolithOffset, z.MonolithLength)
		return mz
	}

	ref := z.SampleRef
	if fileList != nil {
		if idx, err := parseSampleIndex(z.SampleRef); err == nil && idx >= 0 && idx < len(fileList) {
			ref = fileList[idx]
		}
	}
	mz.Sample = model.NewFileSample(ref, func(string) (model.AudioMetadata, []byte, error) {
		path, err := resolver.Resolve(ref)
		if err != nil {
			return model.AudioMetadata{}, nil, err
		}
		return decodeResolvedSample(path)
	})
	return mz
}

func parseSampleIndex(s string) (int, error) {
	var idx int
	_, err := fmt.Sscanf(s, "%d", &idx)
	return idx, err
}
