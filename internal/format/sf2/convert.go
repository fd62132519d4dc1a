package sf2

import (
	"math"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

// GenInstrument (41) and GenSampleID (53, already declared) are the two
// "absolute reference" generators that only ever appear at one level of the
// hierarchy: instrument-index inside a preset zone, sample-index inside an
// instrument zone.
const GenInstrument GeneratorID = 41

// U16 reinterprets the two-byte amount as an unsigned short, the encoding
// SoundFont 2 uses for the sampleID/instrument index generators.
func (a GeneratorAmount) U16() uint16 { return uint16(a.Lo) | uint16(a.Hi)<<8 }

// Range unpacks a ranged generator's low/high byte pair.
func (a GeneratorAmount) Range() (lo, hi int) { return int(a.Lo), int(a.Hi) }

// mergedZone finds a generator amount in z, falling back to the global
// zone's value, the generator-flattening step spec §4's "sdta/pdta... with
// generator flattening" calls for: a preset or instrument zone only lists
// what it overrides, and anything it doesn't list is inherited from the
// global zone at index 0.
func mergedZone(z Zone, global *Zone, id GeneratorID) (GeneratorAmount, bool) {
	if a, ok := z.find(id); ok {
		return a, true
	}
	if global != nil {
		if a, ok := global.find(id); ok {
			return a, true
		}
	}
	return GeneratorAmount{}, false
}

// splitGlobalZone reports whether the bank's "zone 0 has no sampleID /
// instrument generator" convention applies, and if so returns the global
// zone plus the remaining zones that each bind to one instrument/sample.
func splitGlobalZone(zones []Zone, terminal GeneratorID) (global *Zone, rest []Zone) {
	if len(zones) == 0 {
		return nil, nil
	}
	if _, ok := zones[0].find(terminal); !ok {
		g := zones[0]
		return &g, zones[1:]
	}
	return nil, zones
}

func timecentsToSeconds(raw int16) float64 {
	if raw <= -12000 {
		return 0.001
	}
	return math.Pow(2, float64(raw)/1200.0)
}

func centibelsToGainDB(raw int16) float64 { return -float64(raw) / 10.0 }

func centibelsToLinear(raw int16) float64 {
	if raw <= 0 {
		return 1.0
	}
	return math.Pow(10, -float64(raw)/200.0)
}

// ToModel flattens a parsed Bank's preset hierarchy into one
// MultiSampleSource per preset, resolving every instrument zone's
// generators against its global zone and then against the owning preset
// zone's offsets (spec's generator-flattening requirement).
func ToModel(bank *Bank, sampleAt func(SampleHeader) model.SampleSource) []*model.MultiSampleSource {
	var out []*model.MultiSampleSource
	for _, preset := range bank.Presets {
		src := model.NewMultiSampleSource(preset.Name)
		presetGlobal, presetZones := splitGlobalZone(preset.Zones, GenInstrument)
		for _, pz := range presetZones {
			instAmt, ok := mergedZone(pz, presetGlobal, GenInstrument)
			if !ok {
				continue
			}
			idx := int(instAmt.U16())
			if idx < 0 || idx >= len(bank.Instruments) {
				continue
			}
			inst := bank.Instruments[idx]
			g := model.NewGroup(inst.Name)
			instGlobal, instZones := splitGlobalZone(inst.Zones, GenSampleID)
			for _, iz := range instZones {
				zone := zoneFromGenerators(iz, instGlobal, pz, presetGlobal, bank, sampleAt)
				if zone != nil {
					g.Zones = append(g.Zones, zone)
				}
			}
			if len(g.Zones) > 0 {
				src.Groups = append(src.Groups, g)
			}
		}
		out = append(out, src)
	}
	return out
}

func zoneFromGenerators(iz Zone, instGlobal *Zone, pz Zone, presetGlobal *Zone, bank *Bank, sampleAt func(SampleHeader) model.SampleSource) *model.Zone {
	sampleAmt, ok := mergedZone(iz, instGlobal, GenSampleID)
	if !ok {
		return nil
	}
	idx := int(sampleAmt.U16())
	if idx < 0 || idx >= len(bank.Samples) {
		return nil
	}
	sh := bank.Samples[idx]
	z := model.NewZone(sh.Name)
	if sampleAt != nil {
		z.Sample = sampleAt(sh)
	}

	if a, ok := mergedZone(iz, instGlobal, GenKeyRange); ok {
		lo, hi := a.Range()
		z.KeyLow, z.KeyHigh = lo, hi
	}
	if a, ok := mergedZone(iz, instGlobal, GenVelRange); ok {
		lo, hi := a.Range()
		z.VelLow, z.VelHigh = lo, hi
	}
	if a, ok := mergedZone(iz, instGlobal, GenOverridingRootKey); ok && a.Signed >= 0 {
		z.KeyRoot = model.Some(int(a.Signed))
	} else {
		z.KeyRoot = model.Some(int(sh.OriginalKey))
	}

	z.Start = int64(sh.Start)
	z.Stop = int64(sh.End)
	if a, ok := mergedZone(iz, instGlobal, GenStartAddrsOffset); ok {
		z.Start += int64(a.Signed)
	}
	if a, ok := mergedZone(iz, instGlobal, GenEndAddrsOffset); ok {
		z.Stop += int64(a.Signed)
	}

	loopStart, loopEnd := int64(sh.LoopStart), int64(sh.LoopEnd)
	if a, ok := mergedZone(iz, instGlobal, GenStartloopAddrsOffset); ok {
		loopStart += int64(a.Signed)
	}
	if a, ok := mergedZone(iz, instGlobal, GenEndloopAddrsOffset); ok {
		loopEnd += int64(a.Signed)
	}
	if a, ok := mergedZone(iz, instGlobal, GenSampleModes); ok && a.Signed != 0 {
		z.Loops = append(z.Loops, model.Loop{Type: model.LoopForward, Start: loopStart, End: loopEnd})
	}

	var panRaw, atten, coarse, fine int16
	if a, ok := mergedZone(iz, instGlobal, GenPan); ok {
		panRaw = a.Signed
	}
	if a, ok := mergedZone(pz, presetGlobal, GenPan); ok {
		panRaw += a.Signed
	}
	z.Panning = float64(panRaw) / 500.0

	if a, ok := mergedZone(iz, instGlobal, GenInitialAttenuation); ok {
		atten = a.Signed
	}
	if a, ok := mergedZone(pz, presetGlobal, GenInitialAttenuation); ok {
		atten += a.Signed
	}
	z.Gain = centibelsToGainDB(atten)

	if a, ok := mergedZone(iz, instGlobal, GenCoarseTune); ok {
		coarse = a.Signed
	}
	if a, ok := mergedZone(pz, presetGlobal, GenCoarseTune); ok {
		coarse += a.Signed
	}
	if a, ok := mergedZone(iz, instGlobal, GenFineTune); ok {
		fine = a.Signed
	}
	if a, ok := mergedZone(pz, presetGlobal, GenFineTune); ok {
		fine += a.Signed
	}
	z.Tune = float64(coarse) + float64(fine)/100.0

	z.AmpEnv = model.NewEnvelopeModulator()
	if a, ok := mergedZone(iz, instGlobal, GenAttackVolEnv); ok {
		z.AmpEnv.Envelope.Attack = model.Some(timecentsToSeconds(a.Signed))
	}
	if a, ok := mergedZone(iz, instGlobal, GenHoldVolEnv); ok {
		z.AmpEnv.Envelope.Hold = model.Some(timecentsToSeconds(a.Signed))
	}
	if a, ok := mergedZone(iz, instGlobal, GenDecayVolEnv); ok {
		z.AmpEnv.Envelope.Decay = model.Some(timecentsToSeconds(a.Signed))
	}
	if a, ok := mergedZone(iz, instGlobal, GenSustainVolEnv); ok {
		z.AmpEnv.Envelope.Sustain = model.Some(centibelsToLinear(a.Signed))
	}
	if a, ok := mergedZone(iz, instGlobal, GenReleaseVolEnv); ok {
		z.AmpEnv.Envelope.Release = model.Some(timecentsToSeconds(a.Signed))
	}

	return z
}
