// Package sf2 implements the SoundFont 2 codec of spec §4/component C10:
// the `sdta`/`pdta` chunk model, preset/instrument/sample hierarchy, and
// generator flattening (global zone defaults merged down into each local
// zone) needed to read/write an SF2 bank as a set of canonical
// MultiSampleSource instruments, one per preset.
package sf2

import (
	"bytes"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/chunk"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
)

// GeneratorID is one of SoundFont 2's generator enum values (§8.1.3 of the
// SF2 spec); only the subset the canonical model can express is named here.
type GeneratorID uint16

const (
	GenStartAddrsOffset     GeneratorID = 0
	GenEndAddrsOffset       GeneratorID = 1
	GenStartloopAddrsOffset GeneratorID = 2
	GenEndloopAddrsOffset   GeneratorID = 3
	GenPan                  GeneratorID = 17
	GenAttackVolEnv         GeneratorID = 34
	GenHoldVolEnv           GeneratorID = 35
	GenDecayVolEnv          GeneratorID = 36
	GenSustainVolEnv        GeneratorID = 37
	GenReleaseVolEnv        GeneratorID = 38
	GenInitialAttenuation   GeneratorID = 48
	GenCoarseTune           GeneratorID = 51
	GenFineTune             GeneratorID = 52
	GenSampleID             GeneratorID = 53
	GenSampleModes          GeneratorID = 54
	GenKeyRange             GeneratorID = 43
	GenVelRange             GeneratorID = 44
	GenOverridingRootKey    GeneratorID = 58
)

// GeneratorAmount is the generic 16-bit generator value: Lo/Hi are its two
// raw bytes (read as a low/high pair by Range, as an unsigned index by U16)
// and Signed is the same two bytes as a signed short.
type GeneratorAmount struct {
	Lo, Hi uint8
	Signed int16
}

// Generator pairs an id with its amount, in the exact order the bag/gen
// records list them.
type Generator struct {
	ID     GeneratorID
	Amount GeneratorAmount
}

// Zone is one PBAG/IBAG-delimited generator run (global when SampleID is
// unset and this is the zone at bagIndex 0 with no other generators that
// would only apply to an instrument zone).
type Zone struct {
	Generators []Generator
}

func (z Zone) find(id GeneratorID) (GeneratorAmount, bool) {
	for _, g := range z.Generators {
		if g.ID == id {
			return g.Amount, true
		}
	}
	return GeneratorAmount{}, false
}

// SampleHeader mirrors an SF2 `shdr` record.
type SampleHeader struct {
	Name       string
	Start, End uint32
	LoopStart, LoopEnd uint32
	SampleRate uint32
	OriginalKey uint8
	Correction  int8
}

// Instrument is one `inst` record plus its ibag-delimited zones.
type Instrument struct {
	Name  string
	Zones []Zone
}

// Preset is one `phdr` record plus its pbag-delimited zones, each of which
// (via GenSampleID... actually via the instrument generator) references one
// Instrument by index.
type Preset struct {
	Name    string
	Bank    uint16
	Program uint16
	Zones   []Zone
}

// Bank is the fully parsed SF2 content: sample PCM plus the preset/
// instrument hierarchy, pre-generator-flattening.
type Bank struct {
	Samples     []SampleHeader
	SamplePCM   []byte // the whole smpl chunk, 16-bit LE frames
	Instruments []Instrument
	Presets     []Preset
}

// Parse reads an SF2 RIFF file into a Bank.
func Parse(data []byte) (*Bank, error) {
	root, err := chunk.ParseRIFF(bytes.NewReader(data), "sf2")
	if err != nil {
		return nil, err
	}
	if root.Form != "sfbk" {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_SF2_BADFORM", "sf2", nil)
	}
	bank := &Bank{}
	for _, list := range root.FindAll("LIST") {
		switch list.Form {
		case "sdta":
			if smpl := list.Find("smpl"); smpl != nil {
				bank.SamplePCM = smpl.Data
			}
		case "pdta":
			if err := parsePdta(list, bank); err != nil {
				return nil, err
			}
		}
	}
	return bank, nil
}

func parsePdta(list *chunk.Chunk, bank *Bank) error {
	shdr := list.Find("shdr")
	if shdr != nil {
		bank.Samples = parseSampleHeaders(shdr.Data)
	}
	inst := list.Find("inst")
	ibag := list.Find("ibag")
	igen := list.Find("igen")
	if inst != nil && ibag != nil && igen != nil {
		bank.Instruments = parseBagChunk(inst.Data, ibag.Data, igen.Data, true)
	}
	phdr := list.Find("phdr")
	pbag := list.Find("pbag")
	pgen := list.Find("pgen")
	if phdr != nil && pbag != nil && pgen != nil {
		presets, err := parsePresets(phdr.Data, pbag.Data, pgen.Data)
		if err != nil {
			return err
		}
		bank.Presets = presets
	}
	return nil
}

// parseSampleHeaders parses every shdr record and drops the final one,
// which is always the mandatory terminal "EOS" sentinel record rather than
// a real sample (mirrors the inst/phdr terminal-record convention below).
func parseSampleHeaders(data []byte) []SampleHeader {
	const recSize = 46
	var out []SampleHeader
	for off := 0; off+recSize <= len(data); off += recSize {
		br := byteio.NewReader(bytes.NewReader(data[off:off+recSize]), "shdr")
		name, _ := br.CString(20)
		br.Seek(20, 0)
		start, _ := br.U32()
		end, _ := br.U32()
		loopStart, _ := br.U32()
		loopEnd, _ := br.U32()
		rate, _ := br.U32()
		key, _ := br.U8()
		correction, _ := br.U8()
		out = append(out, SampleHeader{
			Name: name, Start: start, End: end, LoopStart: loopStart, LoopEnd: loopEnd,
			SampleRate: rate, OriginalKey: key, Correction: int8(correction),
		})
	}
	if len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out
}

// bagGenOffset reads one 16-bit-pair PBAG/IBAG record: generator index and
// modulator index (modulator index is ignored — modulators aren't in the
// canonical model's scope).
func bagGenOffset(data []byte, bagIndex int) (genNdx int, ok bool) {
	const recSize = 4
	off := bagIndex * recSize
	if off+recSize > len(data) {
		return 0, false
	}
	br := byteio.NewReader(bytes.NewReader(data[off:off+recSize]), "bag")
	g, _ := br.U16()
	return int(g), true
}

func parseGenRecord(data []byte, genIndex int) (Generator, bool) {
	const recSize = 4
	off := genIndex * recSize
	if off+recSize > len(data) {
		return Generator{}, false
	}
	br := byteio.NewReader(bytes.NewReader(data[off:off+recSize]), "gen")
	id, _ := br.U16()
	lo, _ := br.U8()
	hi, _ := br.U8()
	amt := GeneratorAmount{Lo: lo, Hi: hi, Signed: int16(uint16(hi)<<8 | uint16(lo))}
	return Generator{ID: GeneratorID(id), Amount: amt}, true
}

func parseBagChunk(instData, bagData, genData []byte, _ bool) []Instrument {
	const instRec = 22
	var names []string
	var bagStarts []int
	for off := 0; off+instRec <= len(instData); off += instRec {
		br := byteio.NewReader(bytes.NewReader(instData[off:off+instRec]), "inst")
		name, _ := br.CString(20)
		br.Seek(20, 0)
		bagNdx, _ := br.U16()
		names = append(names, name)
		bagStarts = append(bagStarts, int(bagNdx))
	}
	var out []Instrument
	for i := 0; i < len(names)-1; i++ { // the last "EOI" record is a terminator only
		count := bagStarts[i+1] - bagStarts[i]
		zones := zonesFromBagsAt(bagData, genData, bagStarts[i], count)
		out = append(out, Instrument{Name: names[i], Zones: zones})
	}
	return out
}

func zonesFromBagsAt(bagData, genData []byte, start, count int) []Zone {
	zones := make([]Zone, 0, count)
	for i := 0; i < count; i++ {
		startGen, ok1 := bagGenOffset(bagData, start+i)
		endGen, ok2 := bagGenOffset(bagData, start+i+1)
		if !ok1 {
			break
		}
		if !ok2 {
			endGen = len(genData) / 4
		}
		var z Zone
		for g := startGen; g < endGen; g++ {
			if gen, ok := parseGenRecord(genData, g); ok {
				z.Generators = append(z.Generators, gen)
			}
		}
		zones = append(zones, z)
	}
	return zones
}

func parsePresets(phdrData, pbagData, pgenData []byte) ([]Preset, error) {
	const presetRec = 38
	var names []string
	var banks, programs []uint16
	var bagStarts []int
	for off := 0; off+presetRec <= len(phdrData); off += presetRec {
		br := byteio.NewReader(bytes.NewReader(phdrData[off:off+presetRec]), "phdr")
		name, _ := br.CString(20)
		br.Seek(20, 0)
		program, _ := br.U16()
		bank, _ := br.U16()
		bagNdx, _ := br.U16()
		names = append(names, name)
		programs = append(programs, program)
		banks = append(banks, bank)
		bagStarts = append(bagStarts, int(bagNdx))
	}
	var out []Preset
	for i := 0; i < len(names)-1; i++ {
		count := bagStarts[i+1] - bagStarts[i]
		zones := zonesFromBagsAt(pbagData, pgenData, bagStarts[i], count)
		out = append(out, Preset{Name: names[i], Bank: banks[i], Program: programs[i], Zones: zones})
	}
	return out, nil
}
