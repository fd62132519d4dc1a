// Package maschine implements the Native Instruments Maschine preset codec
// of spec §4.7, component C14. A Maschine preset is a Boost-serialization
// parameter-array archive: a fixed ASCII magic, a version tuple, then a
// sequence of index-prefixed rows. Two incompatible offset layouts exist
// for the interesting rows (global SoundInfo, per-zone parameter blocks)
// depending on the archive version, so this codec hard-codes both tables
// the way the source does and picks one at decode time. Boost's own
// archive-varint encoding was never published outside its source, so the
// row-index and length fields use this port's own LEB128-style varint
// (internal/byteio.VarUint) rather than a guessed bit-exact replica — the
// same reduced-fidelity posture already applied to Kontakt and NCW.
package maschine

import (
	"bytes"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/locator"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

const archiveMagic = "serialization::archive"

// Layout selects which of the two incompatible offset tables a row's
// payload follows (spec §4.7: "Two distinct layouts exist (pre-0x0D and
// 0x0D+); offsets to every parameter differ between them").
type Layout uint8

const (
	LayoutPre0x0D Layout = 1
	LayoutV0x0DPlus Layout = 2
)

// zoneBlockSize returns the per-zone parameter block width for l (spec:
// "per-zone parameters repeat in 59- or 80-byte blocks").
func (l Layout) zoneBlockSize() int {
	if l == LayoutV0x0DPlus {
		return 80
	}
	return 59
}

func layoutForVersion(version uint32) Layout {
	if version >= 0x0D {
		return LayoutV0x0DPlus
	}
	return LayoutPre0x0D
}

// IsArchive reports whether data begins with the Boost serialization magic.
func IsArchive(data []byte) bool {
	return len(data) >= len(archiveMagic) && string(data[:len(archiveMagic)]) == archiveMagic
}

// Decode parses one Maschine preset archive into its instrument. baseDir
// and searchRoots feed the shared sample locator the same way every other
// file-referencing codec in this module uses it.
func Decode(data []byte, baseDir string, searchRoots []string) (*model.MultiSampleSource, error) {
	archive, err := parseArchive(data)
	if err != nil {
		return nil, err
	}
	layout := layoutForVersion(archive.Version)
	resolver := &locator.Resolver{PresetDir: baseDir, SearchRoots: searchRoots}
	return archiveToModel(archive, layout, resolver)
}

// archive is the parsed, version-tagged row table.
type archive struct {
	Version uint32
	Minor   uint32
	Rows    map[uint32][]byte
	Order   []uint32 // row indices in on-disk order, for lossless re-emission
}

func parseArchive(data []byte) (*archive, error) {
	br := byteio.NewReader(bytes.NewReader(data), "maschine")
	magic, err := br.Bytes(len(archiveMagic))
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_SHORT_HEADER", "maschine", err)
	}
	if string(magic) != archiveMagic {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_MASCHINE_BADMAGIC", "maschine", nil)
	}
	version, err := br.VarUint()
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_VERSION", "maschine", err)
	}
	minor, err := br.VarUint()
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_VERSION", "maschine", err)
	}
	rowCount, err := br.VarUint()
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_HEADER", "maschine", err)
	}

	a := &archive{Version: version, Minor: minor, Rows: map[uint32][]byte{}}
	for i := uint32(0); i < rowCount; i++ {
		idx, err := br.VarUint()
		if err != nil {
			return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_ROW", "maschine", err)
		}
		length, err := br.VarUint()
		if err != nil {
			return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_ROW", "maschine", err)
		}
		payload, err := br.Bytes(int(length))
		if err != nil {
			return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_MASCHINE_TRUNCATED_ROW_BODY", "maschine", err)
		}
		a.Rows[idx] = payload
		a.Order = append(a.Order, idx)
	}
	return a, nil
}

// EmitFromTemplate writes src as a Maschine preset by splicing its zones
// into templateData's row table and recomputing every length/index field
// (spec §4.7: "Writing reuses a template preset, splices in new zones").
func EmitFromTemplate(templateData []byte, src *model.MultiSampleSource) ([]byte, error) {
	return modelToArchive(templateData, src)
}

// emitArchive serializes rows back into the on-disk row-table shape.
func emitArchive(a *archive) []byte {
	var buf bytes.Buffer
	bw := byteio.NewWriter(&buf)
	bw.Bytes([]byte(archiveMagic))
	bw.VarUint(a.Version)
	bw.VarUint(a.Minor)
	bw.VarUint(uint32(len(a.Order)))
	for _, idx := range a.Order {
		payload := a.Rows[idx]
		bw.VarUint(idx)
		bw.VarUint(uint32(len(payload)))
		bw.Bytes(payload)
	}
	return buf.Bytes()
}
