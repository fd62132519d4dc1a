package kontakt

import (
	"bytes"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
)

// Chunk type IDs within the inflated Preset Chunk tree. Kontakt never
// published these; this port assigns its own stable numbering to the
// handful of record kinds the canonical model needs and treats every other
// ID as an opaque leaf preserved verbatim on round-trip.
const (
	chunkProgram   uint32 = 0x5000
	chunkGroup     uint32 = 0x5010
	chunkZone      uint32 = 0x5020
	chunkFileList  uint32 = 0x5100
	chunkFileListX uint32 = 0x5101
)

// PresetChunk is one id-tagged, version-tagged, length-prefixed node of the
// inner tree (spec §4.3's "Preset Chunk": "the versioned, id-tagged,
// length-prefixed unit of Kontakt's inner data tree").
type PresetChunk struct {
	ID        uint32
	Version   uint16
	Container bool
	Children  []PresetChunk // populated when Container is true
	Payload   []byte        // raw bytes when a leaf
}

// ParsePresetChunks reads every top-level node in the inflated tree.
// Container nodes are recognized by the high bit of the ID being set (this
// port's own convention, applied consistently by EmitPresetChunks below).
func ParsePresetChunks(data []byte) ([]PresetChunk, error) {
	br := byteio.NewReader(bytes.NewReader(data), "kontakt-preset")
	var out []PresetChunk
	for {
		c, ok, err := parseOnePresetChunk(br)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

func parseOnePresetChunk(br *byteio.Reader) (PresetChunk, bool, error) {
	rawID, err := br.U32()
	if err != nil {
		return PresetChunk{}, false, nil // clean EOF between top-level nodes
	}
	version, err := br.U16()
	if err != nil {
		return PresetChunk{}, false, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_CHUNK_HEADER", "kontakt", err)
	}
	size, err := br.U32()
	if err != nil {
		return PresetChunk{}, false, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_CHUNK_HEADER", "kontakt", err)
	}
	container := rawID&0x80000000 != 0
	id := rawID &^ 0x80000000
	payload, err := br.Bytes(int(size))
	if err != nil {
		return PresetChunk{}, false, cwmerr.New(cwmerr.KindTruncated, "IDS_KONTAKT_TRUNCATED_CHUNK_BODY", "kontakt", err)
	}
	c := PresetChunk{ID: id, Version: version, Container: container}
	if container {
		children, err := ParsePresetChunks(payload)
		if err != nil {
			return PresetChunk{}, false, err
		}
		c.Children = children
	} else {
		c.Payload = payload
	}
	return c, true, nil
}

// EmitPresetChunks serializes the tree back into the inflatable blob shape.
func EmitPresetChunks(chunks []PresetChunk) []byte {
	var buf bytes.Buffer
	bw := byteio.NewWriter(&buf)
	for _, c := range chunks {
		writeOnePresetChunk(bw, c)
	}
	return buf.Bytes()
}

func writeOnePresetChunk(bw *byteio.Writer, c PresetChunk) {
	id := c.ID
	var body []byte
	if c.Container {
		id |= 0x80000000
		body = EmitPresetChunks(c.Children)
	} else {
		body = c.Payload
	}
	bw.U32(id)
	bw.U16(c.Version)
	bw.U32(uint32(len(body)))
	bw.Bytes(body)
}

// findFileList returns the first FILENAME_LIST/FILENAME_LIST_EX chunk's
// decoded path table, if any, searching the whole tree depth-first.
func findFileList(chunks []PresetChunk) []string {
	for _, c := range chunks {
		if c.ID == chunkFileList || c.ID == chunkFileListX {
			return decodeFileList(c.Payload)
		}
		if c.Container {
			if found := findFileList(c.Children); found != nil {
				return found
			}
		}
	}
	return nil
}

// decodeFileList reads a count-prefixed table of UTF-16LE path segments
// (spec §4.3: "a table of up to thousands of external sample references
// as encoded path segments").
func decodeFileList(payload []byte) []string {
	br := byteio.NewReader(bytes.NewReader(payload), "kontakt-filelist")
	count, err := br.U32()
	if err != nil {
		return nil
	}
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		length, err := br.U16()
		if err != nil {
			break
		}
		raw, err := br.Bytes(int(length) * 2)
		if err != nil {
			break
		}
		name, err := byteio.DecodeUTF16LE(raw)
		if err != nil {
			break
		}
		out = append(out, name)
	}
	return out
}
