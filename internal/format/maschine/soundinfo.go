package maschine

import (
	"bytes"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

// Row indices within the archive's row table. Boost's own row numbering
// was never published; this port assigns its own stable layout, consistent
// across both zone-block layouts (see maschine.go's package doc).
const (
	rowName      uint32 = 1
	rowSoundInfo uint32 = 2
	rowZones     uint32 = 3
)

const soundInfoSize = 40

// soundInfo is the archive's global parameter block: pitch-bend range,
// master tuning, the one shared envelope and filter, and the two velocity
// modulation depths (spec §4.7: "Global parameters ... live at known
// offsets").
type soundInfo struct {
	PitchBendCents   int16
	MasterTuneCents  int16
	EnvelopeType     uint8
	FilterType       model.FilterType
	FilterCutoffHz   float32
	FilterResonance  float32
	VelToCutoffDepth float32
	VelToVolumeDepth float32
	AmpAttackMS      uint32
	AmpHoldMS        uint32
	AmpDecayMS       uint32
	AmpSustain       uint16
	AmpReleaseMS     uint32
}

func parseSoundInfo(payload []byte) (soundInfo, error) {
	br := byteio.NewReader(bytes.NewReader(payload), "maschine-soundinfo")
	pitchBend, _ := br.I16()
	tune, _ := br.I16()
	envType, _ := br.U8()
	filterTypeByte, _ := br.U8()
	cutoff, _ := br.F32()
	resonance, _ := br.F32()
	velCutoff, _ := br.F32()
	velVolume, _ := br.F32()
	attack, _ := br.U32()
	hold, _ := br.U32()
	decay, _ := br.U32()
	sustain, _ := br.U16()
	release, err := br.U32()
	if err != nil {
		return soundInfo{}, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_SOUNDINFO", "maschine", err)
	}
	return soundInfo{
		PitchBendCents: pitchBend, MasterTuneCents: tune,
		EnvelopeType: envType, FilterType: maschineFilterType(filterTypeByte),
		FilterCutoffHz: cutoff, FilterResonance: resonance,
		VelToCutoffDepth: velCutoff, VelToVolumeDepth: velVolume,
		AmpAttackMS: attack, AmpHoldMS: hold, AmpDecayMS: decay,
		AmpSustain: sustain, AmpReleaseMS: release,
	}, nil
}

func emitSoundInfo(s soundInfo) []byte {
	var buf bytes.Buffer
	bw := byteio.NewWriter(&buf)
	bw.U16(uint16(s.PitchBendCents))
	bw.U16(uint16(s.MasterTuneCents))
	bw.U8(s.EnvelopeType)
	bw.U8(maschineFilterByte(s.FilterType))
	bw.F32(s.FilterCutoffHz)
	bw.F32(s.FilterResonance)
	bw.F32(s.VelToCutoffDepth)
	bw.F32(s.VelToVolumeDepth)
	bw.U32(s.AmpAttackMS)
	bw.U32(s.AmpHoldMS)
	bw.U32(s.AmpDecayMS)
	bw.U16(s.AmpSustain)
	bw.U32(s.AmpReleaseMS)
	out := buf.Bytes()
	if len(out) < soundInfoSize {
		out = append(out, make([]byte, soundInfoSize-len(out))...)
	}
	return out
}

func maschineFilterType(b uint8) model.FilterType {
	switch b {
	case 1:
		return model.FilterHighPass
	case 2:
		return model.FilterBandPass
	case 3:
		return model.FilterNotch
	default:
		return model.FilterLowPass
	}
}

func maschineFilterByte(t model.FilterType) uint8 {
	switch t {
	case model.FilterHighPass:
		return 1
	case model.FilterBandPass:
		return 2
	case model.FilterNotch:
		return 3
	default:
		return 0
	}
}
