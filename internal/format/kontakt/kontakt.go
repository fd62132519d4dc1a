// Package kontakt implements the Kontakt NKI/NKM family codec of spec §4.3,
// component C13 — the hardest subsystem in the repo. Kontakt's on-disk
// layout was never published by Native Instruments; every reader in the
// wild (including this one) is a reconstruction from observed files. This
// port follows the same five-family version dispatch the core's format-
// support document describes (1, 1.5, 2-4.1, 4.2.2+, 5-7) at reduced
// fidelity for the oldest and newest families: the legacy nested-record
// dialect (1/1.5/2-4.1) is read in full and written in its Kontakt 1 form
// only, while the ZLIB Preset
// Chunk tree (4.2.2+/5-7) is walked for the Program/Group/Zone fields the
// canonical model needs, and unrecognized chunk types are preserved as
// opaque payload rather than reinterpreted (see DESIGN.md).
package kontakt

import (
	"bytes"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/locator"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/ziparc"
)

// Version identifies one of the five Kontakt on-disk dialects.
type Version uint8

const (
	Version1       Version = 1
	Version1_5     Version = 2
	Version2to4_1  Version = 3
	Version4_2Plus Version = 4
	Version5to7    Version = 5
)

const legacyMagic = "NKI1"
const presetChunkMagic = "NKCT"

// hasPresetChunkTree reports whether a version stores the inner data as a
// ZLIB Preset Chunk tree rather than the legacy nested-record dialect.
func (v Version) hasPresetChunkTree() bool {
	return v == Version4_2Plus || v == Version5to7
}

// DetectVersion reads the fixed 4-byte header magic and, for the legacy
// dialect, the version byte that follows it.
func DetectVersion(header []byte) (Version, error) {
	if len(header) < 5 {
		return 0, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_SHORT_HEADER", "kontakt", nil)
	}
	switch string(header[:4]) {
	case legacyMagic:
		switch header[4] {
		case 1:
			return Version1, nil
		case 2:
			return Version1_5, nil
		case 3:
			return Version2to4_1, nil
		default:
			return 0, cwmerr.New(cwmerr.KindUnsupportedVersion, "IDS_KONTAKT_UNKNOWN_LEGACY_VERSION", "kontakt", nil)
		}
	case presetChunkMagic:
		if header[4] >= 5 {
			return Version5to7, nil
		}
		return Version4_2Plus, nil
	default:
		return 0, cwmerr.New(cwmerr.KindBadMagic, "IDS_KONTAKT_BADMAGIC", "kontakt", nil)
	}
}

// Decode parses one NKI/NKM file into its instruments. baseDir is the
// directory the file lives in, used by the sample locator to resolve
// relative/bare sample references (spec §4.3's four-step resolution path);
// data itself is also handed on so embedded (monolith) sample windows can
// be read back out of it.
func Decode(data []byte, baseDir string, searchRoots []string) ([]*model.MultiSampleSource, error) {
	version, err := DetectVersion(data)
	if err != nil {
		return nil, err
	}

	resolver := &locator.Resolver{PresetDir: baseDir, SearchRoots: searchRoots}

	var programs []ProgramRecord
	if version.hasPresetChunkTree() {
		inner, err := extractCompressedTree(data)
		if err != nil {
			return nil, err
		}
		chunks, err := ParsePresetChunks(inner)
		if err != nil {
			return nil, err
		}
		fileList := findFileList(chunks)
		programs, err = programsFromPresetChunks(chunks)
		if err != nil {
			return nil, err
		}
		return programsToModel(programs, fileList, resolver, data)
	}

	var samplePaths []string
	programs, samplePaths, err = parseLegacy(data)
	if err != nil {
		return nil, err
	}
	return programsToModel(programs, samplePaths, resolver, data)
}

// extractCompressedTree skips the fixed header and ZLIB-inflates the inner
// Preset Chunk blob (spec §4.3: "a ZLIB-compressed inner blob").
func extractCompressedTree(data []byte) ([]byte, error) {
	br := byteio.NewReader(bytes.NewReader(data), "kontakt")
	if _, err := br.Bytes(4); err != nil {
		return nil, err
	}
	if _, err := br.U8(); err != nil { // version byte, already consumed by DetectVersion
		return nil, err
	}
	compressedSize, err := br.U32()
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_HEADER", "kontakt", err)
	}
	payload, err := br.Bytes(int(compressedSize))
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_BLOB", "kontakt", err)
	}
	inflated, err := ziparc.ZlibDecompress(payload)
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindConstraintViolation, "IDS_KONTAKT_ENCRYPTED_OR_CORRUPT", "kontakt", err)
	}
	return inflated, nil
}

// EmitLegacy writes programs in the Kontakt 1 dialect, the only dialect
// this codec writes (spec §4.3: "write side supports only the Kontakt 1
// dialect"). Metadata beyond name/zones has no slot in that dialect and is
// dropped.
func EmitLegacy(programs []ProgramRecord) []byte {
	return emitLegacy(programs)
}
