package maschine

import (
	"bytes"
	"fmt"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/wav"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/locator"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

// parseZonesRow reads the zones row: a varint zone count followed by that
// many fixed-size blocks (spec §4.7's repeating 59-/80-byte records).
func parseZonesRow(payload []byte, layout Layout) ([]zoneRecord, error) {
	br := byteio.NewReader(bytes.NewReader(payload), "maschine-zones")
	count, err := br.VarUint()
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_ZONES_HEADER", "maschine", err)
	}
	blockSize := layout.zoneBlockSize()
	zones := make([]zoneRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		block, err := br.Bytes(blockSize)
		if err != nil {
			return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_ZONE_BLOCK", "maschine", err)
		}
		z, err := parseZoneBlock(block, layout)
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, nil
}

func emitZonesRow(zones []zoneRecord, layout Layout) []byte {
	var buf bytes.Buffer
	bw := byteio.NewWriter(&buf)
	bw.VarUint(uint32(len(zones)))
	for _, z := range zones {
		bw.Bytes(emitZoneBlock(z, layout))
	}
	return buf.Bytes()
}

// archiveToModel converts a parsed row table into the canonical instrument.
func archiveToModel(a *archive, layout Layout, resolver *locator.Resolver) (*model.MultiSampleSource, error) {
	name := "Preset"
	if raw, ok := a.Rows[rowName]; ok {
		name = string(bytes.TrimRight(raw, "\x00"))
	}

	var info soundInfo
	if raw, ok := a.Rows[rowSoundInfo]; ok {
		parsed, err := parseSoundInfo(raw)
		if err != nil {
			return nil, err
		}
		info = parsed
	}

	var zones []zoneRecord
	if raw, ok := a.Rows[rowZones]; ok {
		parsed, err := parseZonesRow(raw, layout)
		if err != nil {
			return nil, err
		}
		zones = parsed
	}

	src := model.NewMultiSampleSource(name)
	group := model.NewGroup(name)
	for _, z := range zones {
		group.Zones = append(group.Zones, zoneRecordToModel(z, info, resolver))
	}
	src.Groups = append(src.Groups, group)
	return src, nil
}

func zoneRecordToModel(z zoneRecord, info soundInfo, resolver *locator.Resolver) *model.Zone {
	mz := model.NewZone(z.SampleName)
	mz.KeyLow, mz.KeyHigh = z.KeyLow, z.KeyHigh
	mz.VelLow, mz.VelHigh = z.VelLow, z.VelHigh
	mz.KeyRoot = model.Some(z.RootNote)
	mz.Tune = float64(z.FineTuneCents)/100.0 + float64(info.MasterTuneCents)/100.0
	mz.Gain = z.GainDB
	mz.Panning = z.Pan
	mz.BendUp = int(info.PitchBendCents)
	mz.BendDown = int(info.PitchBendCents)
	if z.LoopOn {
		mz.Loops = append(mz.Loops, model.Loop{Type: model.LoopForward, Start: int64(z.LoopStart), End: int64(z.LoopEnd)})
	}

	attackMS, releaseMS := z.AmpAttackMS, z.AmpReleaseMS
	holdMS, decayMS, sustain := info.AmpHoldMS, info.AmpDecayMS, info.AmpSustain
	filterType, cutoff, resonance := info.FilterType, info.FilterCutoffHz, info.FilterResonance
	if z.HasPerZoneEnvelope {
		holdMS, decayMS, sustain = z.AmpHoldMS, z.AmpDecayMS, z.AmpSustain
		filterType, cutoff, resonance = maschineFilterType(z.FilterTypeByte), z.FilterCutoffHz, z.FilterResonance
	}
	mz.AmpEnv.Envelope.Attack = model.Some(float64(attackMS) / 1000.0)
	mz.AmpEnv.Envelope.Hold = model.Some(float64(holdMS) / 1000.0)
	mz.AmpEnv.Envelope.Decay = model.Some(float64(decayMS) / 1000.0)
	mz.AmpEnv.Envelope.Sustain = model.Some(float64(sustain) / 1000.0)
	mz.AmpEnv.Envelope.Release = model.Some(float64(releaseMS) / 1000.0)
	mz.Filter = &model.Filter{Type: filterType, Poles: 2, Cutoff: float64(cutoff), Resonance: float64(resonance)}
	mz.AmpVelMod.Depth = float64(info.VelToVolumeDepth)
	mz.FilterEnv = model.NewEnvelopeModulator()
	mz.FilterEnv.Depth = float64(info.VelToCutoffDepth)

	mz.Sample = model.NewFileSample(z.SampleName, func(string) (model.AudioMetadata, []byte, error) {
		path, err := resolver.Resolve(z.SampleName)
		if err != nil {
			return model.AudioMetadata{}, nil, err
		}
		return wav.Decode(path)
	})
	return mz
}

// modelToArchive splices src's zones into a template archive, reusing its
// rows for everything the Maschine preset shape needs beyond what the
// canonical model tracks (spec §4.7: "Writing reuses a template preset,
// splices in new zones, and recomputes all length fields and indices").
func modelToArchive(templateData []byte, src *model.MultiSampleSource) ([]byte, error) {
	template, err := parseArchive(templateData)
	if err != nil {
		return nil, err
	}
	layout := layoutForVersion(template.Version)

	var zones []zoneRecord
	for _, g := range src.Groups {
		for _, z := range g.Zones {
			zones = append(zones, zoneRecordFromModel(z))
		}
	}

	out := &archive{Version: template.Version, Minor: template.Minor, Rows: map[uint32][]byte{}}
	for k, v := range template.Rows {
		out.Rows[k] = v
	}
	out.Order = template.Order
	if _, ok := out.Rows[rowName]; !ok {
		out.Order = append(out.Order, rowName)
	}
	out.Rows[rowName] = append([]byte(src.Name), 0)
	if _, ok := out.Rows[rowZones]; !ok {
		out.Order = append(out.Order, rowZones)
	}
	out.Rows[rowZones] = emitZonesRow(zones, layout)
	return emitArchive(out), nil
}

func zoneRecordFromModel(z *model.Zone) zoneRecord {
	zr := zoneRecord{
		KeyLow: z.KeyLow, KeyHigh: z.KeyHigh,
		VelLow: z.VelLow, VelHigh: z.VelHigh,
		RootNote:      z.ResolvedKeyRoot(),
		FineTuneCents: int(z.Tune * 100),
		GainDB:        z.Gain,
		Pan:           z.Panning,
	}
	if len(z.Loops) > 0 {
		zr.LoopOn = true
		zr.LoopStart = uint32(z.Loops[0].Start)
		zr.LoopEnd = uint32(z.Loops[0].End)
	}
	if fs, ok := z.Sample.(*model.FileSample); ok {
		zr.SampleName = fs.Path
	} else {
		zr.SampleName = fmt.Sprintf("%s.wav", z.Name)
	}
	if z.AmpEnv != nil {
		if v, ok := z.AmpEnv.Envelope.Attack.Get(); ok {
			zr.AmpAttackMS = uint32(v * 1000.0)
		}
		if v, ok := z.AmpEnv.Envelope.Release.Get(); ok {
			zr.AmpReleaseMS = uint32(v * 1000.0)
		}
	}
	if z.Filter != nil {
		zr.HasPerZoneEnvelope = true
		zr.FilterTypeByte = maschineFilterByte(z.Filter.Type)
		zr.FilterCutoffHz = float32(z.Filter.Cutoff)
		zr.FilterResonance = float32(z.Filter.Resonance)
		if z.AmpEnv != nil {
			if v, ok := z.AmpEnv.Envelope.Hold.Get(); ok {
				zr.AmpHoldMS = uint32(v * 1000.0)
			}
			if v, ok := z.AmpEnv.Envelope.Decay.Get(); ok {
				zr.AmpDecayMS = uint32(v * 1000.0)
			}
			if v, ok := z.AmpEnv.Envelope.Sustain.Get(); ok {
				zr.AmpSustain = uint16(v * 1000.0)
			}
		}
	}
	return zr
}
