package maschine

import (
	"bytes"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
)

const sampleNameFieldSize = 32

// zoneRecord is one decoded per-zone parameter block (spec §4.7: "per-zone
// parameters repeat in 59- or 80-byte blocks"). The first 59 bytes have the
// same shape in both layouts; 0x0D+ appends a further 21 bytes (per-zone
// filter + full envelope) that pre-0x0D zones share from the SoundInfo
// block instead.
type zoneRecord struct {
	KeyLow, KeyHigh int
	VelLow, VelHigh int
	RootNote        int
	FineTuneCents   int
	GainDB          float64
	Pan             float64
	LoopOn          bool
	LoopStart       uint32
	LoopEnd         uint32
	SampleName      string

	AmpAttackMS  uint32
	AmpReleaseMS uint32

	HasPerZoneEnvelope bool
	FilterTypeByte     uint8
	FilterCutoffHz     float32
	FilterResonance    float32
	AmpHoldMS          uint32
	AmpDecayMS         uint32
	AmpSustain         uint16
}

func parseZoneBlock(block []byte, layout Layout) (zoneRecord, error) {
	if len(block) != layout.zoneBlockSize() {
		return zoneRecord{}, cwmerr.New(cwmerr.KindConstraintViolation, "IDS_MASCHINE_BAD_ZONE_SIZE", "maschine", nil)
	}
	br := byteio.NewReader(bytes.NewReader(block), "maschine-zone")
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
	loopEnd, _ := br.U32()
	nameBytes, _ := br.Bytes(sampleNameFieldSize)
	attack, _ := br.U32()
	release, err := br.U32()
	if err != nil {
		return zoneRecord{}, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_ZONE", "maschine", err)
	}

	z := zoneRecord{
		KeyLow: int(keyLow), KeyHigh: int(keyHigh),
		VelLow: int(velLow), VelHigh: int(velHigh),
		RootNote: int(rootNote), FineTuneCents: int(fineTune),
		GainDB: float64(gainCenti) / 100.0, Pan: float64(int8(panRaw)) / 100.0,
		LoopOn: loopOn != 0, LoopStart: loopStart, LoopEnd: loopEnd,
		SampleName:   byteio.DecodeWindows1252(nameBytes),
		AmpAttackMS:  attack,
		AmpReleaseMS: release,
	}

	if layout == LayoutV0x0DPlus {
		filterType, _ := br.U8()
		cutoff, _ := br.F32()
		resonance, _ := br.F32()
		hold, _ := br.U32()
		decay, _ := br.U32()
		sustain, _ := br.U16()
		if _, err := br.U16(); err != nil { // reserved
			return zoneRecord{}, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_ZONE", "maschine", err)
		}
		z.HasPerZoneEnvelope = true
		z.FilterTypeByte = filterType
		z.FilterCutoffHz = cutoff
		z.FilterResonance = resonance
		z.AmpHoldMS = hold
		z.AmpDecayMS = decay
		z.AmpSustain = sustain
	}
	return z, nil
}

func emitZoneBlock(z zoneRecord, layout Layout) []byte {
	var buf bytes.Buffer
	bw := byteio.NewWriter(&buf)
	bw.U8(uint8(z.KeyLow))
	bw.U8(uint8(z.KeyHigh))
	bw.U8(uint8(z.VelLow))
	bw.U8(uint8(z.VelHigh))
	bw.U8(uint8(z.RootNote))
	bw.U16(uint16(int16(z.FineTuneCents)))
	bw.U16(uint16(int16(z.GainDB * 100)))
	bw.U8(uint8(int8(z.Pan * 100)))
	loopOnByte := uint8(0)
	if z.LoopOn {
		loopOnByte = 1
	}
	bw.U8(loopOnByte)
	bw.U32(z.LoopStart)
	bw.U32(z.LoopEnd)
	bw.Bytes(fixedWidthName(z.SampleName, sampleNameFieldSize))
	bw.U32(z.AmpAttackMS)
	bw.U32(z.AmpReleaseMS)

	if layout == LayoutV0x0DPlus {
		bw.U8(z.FilterTypeByte)
		bw.F32(z.FilterCutoffHz)
		bw.F32(z.FilterResonance)
		bw.U32(z.AmpHoldMS)
		bw.U32(z.AmpDecayMS)
		bw.U16(z.AmpSustain)
		bw.U16(0) // reserved
	}
	out := buf.Bytes()
	if len(out) != layout.zoneBlockSize() {
		padded := make([]byte, layout.zoneBlockSize())
		copy(padded, out)
		out = padded
	}
	return out
}

func fixedWidthName(name string, width int) []byte {
	b := []byte(name)
	if len(b) > width {
		b = b[:width]
	}
	out := make([]byte, width)
	copy(out, b)
	return out
}
