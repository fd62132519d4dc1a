package sf2

import (
	"bytes"
	"math"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/chunk"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

// EmitBank renders one or more instruments as a single SF2 bank, one preset
// per instrument and one SF2 instrument per canonical Group. Unlike the
// reader's general flattening, the writer keeps every zone's generators at
// instrument-zone level and leaves preset-level offsets at zero, which
// round-trips losslessly through ToModel's additive merge. Modulators
// aren't part of the canonical model, so pmod/imod each carry only the
// mandatory terminal record (spec's stated Non-goal on per-format exotic
// modulation routings).
func EmitBank(sources []*model.MultiSampleSource) ([]byte, error) {
	samples, sampleIndex := collectSamples(sources)

	shdrBuf := &bytes.Buffer{}
	smplBuf := &bytes.Buffer{}
	frameOffset := uint32(0)
	for _, s := range samples {
		pcm, err := s.src.PCM()
		if err != nil {
			return nil, err
		}
		meta, _ := s.src.Metadata()
		smplBuf.Write(pcm)
		frames := uint32(len(pcm) / 2)
		loopStart, loopEnd := frameOffset, frameOffset
		if len(s.loop) == 2 {
			loopStart = frameOffset + uint32(s.loop[0])
			loopEnd = frameOffset + uint32(s.loop[1])
		}
		writeSampleHeader(shdrBuf, s.name, frameOffset, frameOffset+frames, loopStart, loopEnd, uint32(meta.SampleRate), 60)
		frameOffset += frames
	}
	writeSampleHeader(shdrBuf, "EOS", 0, 0, 0, 0, 0, 0)
	smplBuf.Write(make([]byte, 92)) // trailing silence SF2 readers expect past the last sample

	instBuf, ibagBuf, imodBuf, igenBuf := &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}
	phdrBuf, pbagBuf, pmodBuf, pgenBuf := &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}

	bagIdx, genIdx := 0, 0
	for _, src := range sources {
		for _, g := range src.Groups {
			instName := g.Name
			if instName == "" {
				instName = src.Name
			}
			writeInstHeader(instBuf, instName, bagIdx)
			for _, z := range g.Zones {
				idx, ok := sampleIndex[z.Sample]
				if !ok {
					continue
				}
				writeBagRecord(ibagBuf, genIdx, 0)
				genIdx += writeZoneGenerators(igenBuf, z, idx)
				bagIdx++
			}
		}
	}
	writeInstHeader(instBuf, "EOI", bagIdx)
	writeBagRecord(ibagBuf, genIdx, 0)
	imodBuf.Write(make([]byte, 10))

	presetBagIdx, presetGenIdx := 0, 0
	instOrdinal := 0
	for pi, src := range sources {
		writePresetHeader(phdrBuf, src.Name, uint16(pi), presetBagIdx)
		for range src.Groups {
			writeBagRecord(pbagBuf, presetGenIdx, 0)
			writePresetGenerators(pgenBuf, instOrdinal)
			presetGenIdx++
			presetBagIdx++
			instOrdinal++
		}
	}
	writePresetHeader(phdrBuf, "EOP", 0, presetBagIdx)
	writeBagRecord(pbagBuf, presetGenIdx, 0)
	pmodBuf.Write(make([]byte, 10))

	infoList := &chunk.Chunk{ID: "LIST", Form: "INFO", Children: []*chunk.Chunk{
		{ID: "ifil", Data: ifilPayload()},
		{ID: "isng", Data: cstringBytes("EMU8000")},
		{ID: "INAM", Data: cstringBytes(bankName(sources))},
	}}
	sdtaList := &chunk.Chunk{ID: "LIST", Form: "sdta", Children: []*chunk.Chunk{
		{ID: "smpl", Data: smplBuf.Bytes()},
	}}
	pdtaList := &chunk.Chunk{ID: "LIST", Form: "pdta", Children: []*chunk.Chunk{
		{ID: "phdr", Data: phdrBuf.Bytes()},
		{ID: "pbag", Data: pbagBuf.Bytes()},
		{ID: "pmod", Data: pmodBuf.Bytes()},
		{ID: "pgen", Data: pgenBuf.Bytes()},
		{ID: "inst", Data: instBuf.Bytes()},
		{ID: "ibag", Data: ibagBuf.Bytes()},
		{ID: "imod", Data: imodBuf.Bytes()},
		{ID: "igen", Data: igenBuf.Bytes()},
		{ID: "shdr", Data: shdrBuf.Bytes()},
	}}
	root := &chunk.Chunk{ID: "RIFF", Form: "sfbk", Children: []*chunk.Chunk{infoList, sdtaList, pdtaList}}

	var out bytes.Buffer
	if err := chunk.Emit(root, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func bankName(sources []*model.MultiSampleSource) string {
	if len(sources) == 1 {
		return sources[0].Name
	}
	return "bank"
}

func ifilPayload() []byte {
	buf := &bytes.Buffer{}
	bw := byteio.NewWriter(buf)
	bw.U16(2)
	bw.U16(1)
	return buf.Bytes()
}

func cstringBytes(s string) []byte {
	b := append([]byte(s), 0)
	if len(b)%2 == 1 {
		b = append(b, 0)
	}
	return b
}

type sampleEntry struct {
	name string
	src  model.SampleSource
	loop []int64 // len 0 or 2
}

// collectSamples deduplicates zones' sample sources by identity, in the
// order first encountered, and indexes each by generator-amount position.
func collectSamples(sources []*model.MultiSampleSource) ([]sampleEntry, map[model.SampleSource]int) {
	var out []sampleEntry
	index := map[model.SampleSource]int{}
	for _, src := range sources {
		for _, g := range src.Groups {
			for _, z := range g.Zones {
				if z.Sample == nil {
					continue
				}
				if _, ok := index[z.Sample]; ok {
					continue
				}
				entry := sampleEntry{name: z.Name, src: z.Sample}
				if len(z.Loops) > 0 {
					entry.loop = []int64{z.Loops[0].Start, z.Loops[0].End}
				}
				index[z.Sample] = len(out)
				out = append(out, entry)
			}
		}
	}
	return out, index
}

func writeSampleHeader(buf *bytes.Buffer, name string, start, end, loopStart, loopEnd, rate uint32, key uint8) {
	bw := byteio.NewWriter(buf)
	nameBytes := make([]byte, 20)
	copy(nameBytes, name)
	bw.Bytes(nameBytes)
	bw.U32(start)
	bw.U32(end)
	bw.U32(loopStart)
	bw.U32(loopEnd)
	bw.U32(rate)
	bw.U8(key)
	bw.U8(0)
	bw.U16(0)
	bw.U16(0)
}

func writeInstHeader(buf *bytes.Buffer, name string, bagIdx int) {
	bw := byteio.NewWriter(buf)
	nameBytes := make([]byte, 20)
	copy(nameBytes, name)
	bw.Bytes(nameBytes)
	bw.U16(uint16(bagIdx))
}

func writePresetHeader(buf *bytes.Buffer, name string, program uint16, bagIdx int) {
	bw := byteio.NewWriter(buf)
	nameBytes := make([]byte, 20)
	copy(nameBytes, name)
	bw.Bytes(nameBytes)
	bw.U16(program)
	bw.U16(0)
	bw.U16(uint16(bagIdx))
	bw.U32(0)
	bw.U32(0)
	bw.U32(0)
}

func writeBagRecord(buf *bytes.Buffer, genNdx, modNdx int) {
	bw := byteio.NewWriter(buf)
	bw.U16(uint16(genNdx))
	bw.U16(uint16(modNdx))
}

func writeGen(buf *bytes.Buffer, id GeneratorID, lo, hi uint8) {
	bw := byteio.NewWriter(buf)
	bw.U16(uint16(id))
	bw.U8(lo)
	bw.U8(hi)
}

func writeGenSigned(buf *bytes.Buffer, id GeneratorID, v int16) {
	writeGen(buf, id, uint8(uint16(v)), uint8(uint16(v)>>8))
}

func writeGenU16(buf *bytes.Buffer, id GeneratorID, v uint16) {
	writeGen(buf, id, uint8(v), uint8(v>>8))
}

// writeZoneGenerators renders one instrument zone's absolute generator list
// and returns how many generator records were written (for the next bag's
// genNdx).
func writeZoneGenerators(buf *bytes.Buffer, z *model.Zone, sampleIdx int) int {
	n := 0
	writeGen(buf, GenKeyRange, uint8(z.KeyLow), uint8(z.KeyHigh))
	n++
	writeGen(buf, GenVelRange, uint8(z.VelLow), uint8(z.VelHigh))
	n++
	writeGenSigned(buf, GenPan, int16(z.Panning*500))
	n++
	writeGenSigned(buf, GenInitialAttenuation, int16(-z.Gain*10))
	n++
	coarse := int16(z.Tune)
	fine := int16((z.Tune - float64(coarse)) * 100)
	writeGenSigned(buf, GenCoarseTune, coarse)
	n++
	writeGenSigned(buf, GenFineTune, fine)
	n++
	if root, ok := z.KeyRoot.Get(); ok {
		writeGenSigned(buf, GenOverridingRootKey, int16(root))
		n++
	}
	if z.AmpEnv != nil {
		if v, ok := z.AmpEnv.Envelope.Attack.Get(); ok {
			writeGenSigned(buf, GenAttackVolEnv, secondsToTimecents(v))
			n++
		}
		if v, ok := z.AmpEnv.Envelope.Hold.Get(); ok {
			writeGenSigned(buf, GenHoldVolEnv, secondsToTimecents(v))
			n++
		}
		if v, ok := z.AmpEnv.Envelope.Decay.Get(); ok {
			writeGenSigned(buf, GenDecayVolEnv, secondsToTimecents(v))
			n++
		}
		if v, ok := z.AmpEnv.Envelope.Sustain.Get(); ok {
			writeGenSigned(buf, GenSustainVolEnv, linearToCentibels(v))
			n++
		}
		if v, ok := z.AmpEnv.Envelope.Release.Get(); ok {
			writeGenSigned(buf, GenReleaseVolEnv, secondsToTimecents(v))
			n++
		}
	}
	if len(z.Loops) > 0 {
		writeGenSigned(buf, GenSampleModes, 1)
		n++
	}
	writeGenU16(buf, GenSampleID, uint16(sampleIdx))
	n++
	return n
}

func writePresetGenerators(buf *bytes.Buffer, instIdx int) {
	writeGenU16(buf, GenInstrument, uint16(instIdx))
}

func secondsToTimecents(s float64) int16 {
	if s <= 0 {
		return -12000
	}
	tc := 1200.0 * math.Log2(s)
	if tc < -12000 {
		return -12000
	}
	if tc > 8000 {
		return 8000
	}
	return int16(tc)
}

func linearToCentibels(v float64) int16 {
	if v >= 1 {
		return 0
	}
	if v <= 0 {
		return 1000
	}
	return int16(-200 * math.Log10(v))
}
