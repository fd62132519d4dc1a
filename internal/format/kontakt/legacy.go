package kontakt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
)

// parseLegacy reads the nested-record dialect shared by Kontakt 1, 1.5 and
// 2-4.1 (spec §4.3: "a simpler nested record format with a string table").
// No envelope/filter/Preset Chunk concept exists in this dialect; only
// mapping and loop fields survive. The trailing string table is returned
// as the caller's fileList so the shared zoneRecordToModel index lookup
// (normally a Preset Chunk family's FILENAME_LIST) resolves it the same
// way.
func parseLegacy(data []byte) ([]ProgramRecord, []string, error) {
	br := byteio.NewReader(bytes.NewReader(data), "kontakt-legacy")
	if _, err := br.Bytes(5); err != nil { // magic + version byte, already checked by DetectVersion
		return nil, nil, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_HEADER", "kontakt", err)
	}
	programCount, err := br.U16()
	if err != nil {
		return nil, nil, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_HEADER", "kontakt", err)
	}

	programs := make([]ProgramRecord, 0, programCount)
	for i := uint16(0); i < programCount; i++ {
		name, err := br.PString16()
		if err != nil {
			return nil, nil, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_PROGRAM", "kontakt", err)
		}
		groupCount, err := br.U16()
		if err != nil {
			return nil, nil, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_PROGRAM", "kontakt", err)
		}
		program := ProgramRecord{Name: name}
		for g := uint16(0); g < groupCount; g++ {
			groupName, err := br.PString16()
			if err != nil {
				return nil, nil, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_GROUP", "kontakt", err)
			}
			zoneCount, err := br.U16()
			if err != nil {
				return nil, nil, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_GROUP", "kontakt", err)
			}
			group := GroupRecord{Name: groupName}
			for z := uint16(0); z < zoneCount; z++ {
				zone, err := readLegacyZone(br)
				if err != nil {
					return nil, nil, err
				}
				group.Zones = append(group.Zones, zone)
			}
			program.Groups = append(program.Groups, group)
		}
		programs = append(programs, program)
	}

	sampleCount, err := br.U16()
	if err != nil {
		return nil, nil, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_STRING_TABLE", "kontakt", err)
	}
	samplePaths := make([]string, 0, sampleCount)
	for i := uint16(0); i < sampleCount; i++ {
		p, err := br.PString16()
		if err != nil {
			return nil, nil, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_STRING_TABLE", "kontakt", err)
		}
		samplePaths = append(samplePaths, p)
	}
	return programs, samplePaths, nil
}

// readLegacyZone decodes one fixed-size zone record; the trailing uint16
// is a sample-index into the string table parseLegacy reads afterward, so
// it is stored as ZoneRecord.SampleRef (a decimal string) for
// zoneRecordToModel's index-into-fileList lookup to resolve later.
func readLegacyZone(br *byteio.Reader) (ZoneRecord, error) {
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
	sampleIndex, err := br.U16()
	if err != nil {
		return ZoneRecord{}, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_ZONE", "kontakt", err)
	}
	return ZoneRecord{
		KeyLow: int(keyLow), KeyHigh: int(keyHigh),
		VelLow: int(velLow), VelHigh: int(velHigh),
		RootNote: int(rootNote), FineTuneCents: int(fineTune),
		GainDB: float64(gainCenti) / 100.0, Pan: float64(int8(panRaw)) / 100.0,
		LoopOn: loopOn != 0, LoopStart: loopStart, LoopEnd: loopEnd,
		SampleRef: fmt.Sprintf("%d", sampleIndex),
	}, nil
}

// emitLegacy writes the Kontakt 1 dialect: fixed header, nested
// program/group/zone records, and a trailing sample-path string table
// (spec §4.3: "backward slashes are used in sample paths").
func emitLegacy(programs []ProgramRecord) []byte {
	var buf bytes.Buffer
	bw := byteio.NewWriter(&buf)
	bw.Bytes([]byte(legacyMagic))
	bw.U8(1)
	bw.U16(uint16(len(programs)))

	var samplePaths []string
	sampleIndex := map[string]uint16{}
	indexFor := func(ref string) uint16 {
		winPath := strings.ReplaceAll(ref, "/", "\\")
		if idx, ok := sampleIndex[winPath]; ok {
			return idx
		}
		idx := uint16(len(samplePaths))
		samplePaths = append(samplePaths, winPath)
		sampleIndex[winPath] = idx
		return idx
	}

	for _, p := range programs {
		bw.PString16(p.Name)
		bw.U16(uint16(len(p.Groups)))
		for _, g := range p.Groups {
			bw.PString16(g.Name)
			bw.U16(uint16(len(g.Zones)))
			for _, z := range g.Zones {
				writeLegacyZone(bw, z, indexFor(z.SampleRef))
			}
		}
	}

	bw.U16(uint16(len(samplePaths)))
	for _, p := range samplePaths {
		bw.PString16(p)
	}
	return buf.Bytes()
}

func writeLegacyZone(bw *byteio.Writer, z ZoneRecord, sampleIndex uint16) {
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
	bw.U16(sampleIndex)
}
