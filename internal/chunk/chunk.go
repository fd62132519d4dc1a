// Package chunk implements the bidirectional RIFF / AIFF FORM / generic TLV
// chunk-tree engine (spec §4.1, component C2). go-audio/riff (pulled in
// transitively by go-audio/wav) only supports a forward read of a single
// RIFF stream and cannot write or walk the big-endian AIFF FORM container,
// so this engine is hand-rolled on top of internal/byteio, the way the
// teacher hand-rolls its own framing logic (e.g. internal/storage's
// gzip+JSON envelope) rather than reaching for a generic container library.
package chunk

import (
	"io"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
)

// Chunk is one node of a parsed chunk tree. Container chunks (RIFF, LIST,
// FORM, CAT ) carry Form and Children; leaf chunks carry Data.
type Chunk struct {
	ID       string
	Form     string // set only on RIFF/LIST/FORM-style containers
	Data     []byte
	Children []*Chunk
	// Misaligned records that this chunk's declared size ran past the end
	// of the input: Data holds only the bytes that were present, and no
	// further siblings were read after it.
	Misaligned bool
}

// IsContainer reports whether this chunk recurses into children.
func (c *Chunk) IsContainer() bool { return c.Form != "" || c.Children != nil }

// Find returns the first direct child with the given id, or nil.
func (c *Chunk) Find(id string) *Chunk {
	for _, ch := range c.Children {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

// FindAll returns all direct children with the given id.
func (c *Chunk) FindAll(id string) []*Chunk {
	var out []*Chunk
	for _, ch := range c.Children {
		if ch.ID == id {
			out = append(out, ch)
		}
	}
	return out
}

// Replace swaps the payload of the first direct child with the given id,
// or appends a new leaf chunk with that payload if none exists.
func (c *Chunk) Replace(id string, data []byte) {
	for _, ch := range c.Children {
		if ch.ID == id {
			ch.Data = data
			ch.Children = nil
			ch.Form = ""
			return
		}
	}
	c.Children = append(c.Children, &Chunk{ID: id, Data: data})
}

// Remove deletes all direct children matching any of the given ids.
func (c *Chunk) Remove(ids ...string) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	kept := c.Children[:0]
	for _, ch := range c.Children {
		if !set[ch.ID] {
			kept = append(kept, ch)
		}
	}
	c.Children = kept
}

// InsertBefore inserts newChunk immediately before the first child with id
// beforeID, or appends it if beforeID is not found.
func (c *Chunk) InsertBefore(beforeID string, newChunk *Chunk) {
	for i, ch := range c.Children {
		if ch.ID == beforeID {
			c.Children = append(c.Children[:i], append([]*Chunk{newChunk}, c.Children[i:]...)...)
			return
		}
	}
	c.Children = append(c.Children, newChunk)
}

// containerIDs are ids whose payload is itself [formtype][subchunks...] and
// must recurse, regardless of outer container flavor (LIST inside RIFF,
// RIFF inside a WAVE-in-ZIP style embed, etc).
var containerIDs = map[string]bool{
	"RIFF": true,
	"LIST": true,
	"FORM": true,
	"CAT ": true,
}

// ParseRIFF parses a little-endian-sized RIFF (or RIFX, big-endian-sized
// variant used by some SF2 exporters) stream starting at the current
// position. It tolerates: a short fmt cbSize, a chunk whose declared size
// runs past EOF (clamped to what is actually present, and marked
// Misaligned), and JUNK/FLLR padding. An odd-sized chunk whose pad byte is
// missing is not resynchronised: the following ids are read one byte late,
// and parsing of that level stops at the first chunk that cannot be read.
func ParseRIFF(r io.ReadSeeker, file string) (*Chunk, error) {
	br := byteio.NewReader(r, file)
	return parseContainer(br, false)
}

// ParseAIFF parses a big-endian-sized FORM container (AIFF/AIFC).
func ParseAIFF(r io.ReadSeeker, file string) (*Chunk, error) {
	br := byteio.NewReader(r, file)
	br.BigEndian = true
	return parseContainer(br, true)
}

func parseContainer(br *byteio.Reader, bigEndian bool) (*Chunk, error) {
	id, err := br.FourCC()
	if err != nil {
		return nil, err
	}
	if id != "RIFF" && id != "RIFX" && id != "FORM" {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_CHUNK_BADMAGIC", br.File, nil).WithChunk(id, 0)
	}
	if id == "RIFX" {
		br.BigEndian = true
	}
	size, err := br.U32()
	if err != nil {
		return nil, err
	}
	form, err := br.FourCC()
	if err != nil {
		return nil, err
	}
	end := br.Offset() + int64(size) - 4
	children, err := parseChunks(br, end)
	if err != nil {
		return nil, err
	}
	return &Chunk{ID: id, Form: form, Children: children}, nil
}

// parseChunks reads sibling chunks until end (an EOF-if-size-is-bogus
// boundary, not a hard cutoff: a short file simply stops early).
func parseChunks(br *byteio.Reader, end int64) ([]*Chunk, error) {
	var out []*Chunk
	for {
		off := br.Offset()
		if end > 0 && off >= end {
			break
		}
		id, err := br.FourCC()
		if err != nil {
			// Truncated trailing padding byte or two; stop, not fatal.
			break
		}
		size, err := br.U32()
		if err != nil {
			break
		}
		if containerIDs[id] {
			form, err := br.FourCC()
			if err != nil {
				break
			}
			childEnd := br.Offset() + int64(size) - 4
			children, err := parseChunks(br, childEnd)
			if err != nil {
				return nil, err
			}
			out = append(out, &Chunk{ID: id, Form: form, Children: children})
			if size%2 == 1 {
				br.Bytes(1) // pad byte
			}
			continue
		}
		payloadStart := br.Offset()
		data, err := br.Bytes(int(size))
		misaligned := false
		if err != nil {
			// ChunkTooLarge / Truncated: clamp to what remains rather than
			// aborting the whole file (spec §4.1 edge cases).
			data = nil
			if _, serr := br.Seek(payloadStart, io.SeekStart); serr == nil {
				data, _ = io.ReadAll(br.R)
			}
			misaligned = true
		}
		out = append(out, &Chunk{ID: id, Data: data, Misaligned: misaligned})
		if size%2 == 1 {
			if _, err := br.Bytes(1); err != nil {
				break
			}
		}
		if misaligned {
			break
		}
	}
	return out, nil
}

// ParseGeneric reads a flat or caller-driven-nested sequence of id+u32size+
// payload chunks with no enclosing RIFF/FORM wrapper — the KMP/KSF/EXS24
// shape, where the top-level "magic" is itself the first chunk id rather
// than a container keyword. nestedIDs (by id) tells the parser which
// chunks themselves contain nested id+size+payload records instead of raw
// bytes.
func ParseGeneric(br *byteio.Reader, end int64, nestedIDs map[string]bool) ([]*Chunk, error) {
	var out []*Chunk
	for {
		off := br.Offset()
		if end > 0 && off >= end {
			break
		}
		id, err := br.FourCC()
		if err != nil {
			break
		}
		size, err := br.U32()
		if err != nil {
			break
		}
		if nestedIDs[id] {
			childEnd := br.Offset() + int64(size)
			children, err := ParseGeneric(br, childEnd, nestedIDs)
			if err != nil {
				return nil, err
			}
			out = append(out, &Chunk{ID: id, Children: children})
			continue
		}
		data, err := br.Bytes(int(size))
		if err != nil {
			break
		}
		out = append(out, &Chunk{ID: id, Data: data})
	}
	return out, nil
}

// Emit writes the tree back out, recomputing every container's size field
// and zero-padding odd-length payloads to an even boundary — unconditionally,
// even if the parsed input was itself misaligned, per spec §4.1 ("on
// rewrite, always realign even when the input was misaligned").
func Emit(c *Chunk, w io.Writer) error {
	bw := byteio.NewWriter(w)
	return emitChunk(bw, c, false)
}

// EmitAIFF is Emit for the big-endian FORM flavor.
func EmitAIFF(c *Chunk, w io.Writer) error {
	bw := byteio.NewWriter(w)
	bw.BigEndian = true
	return emitChunk(bw, c, true)
}

func emitChunk(bw *byteio.Writer, c *Chunk, bigEndian bool) error {
	if c.IsContainer() {
		payload, err := renderChildren(c.Children, bigEndian)
		if err != nil {
			return err
		}
		if err := bw.FourCC(c.ID); err != nil {
			return err
		}
		if err := bw.U32(uint32(len(payload) + 4)); err != nil {
			return err
		}
		if err := bw.FourCC(c.Form); err != nil {
			return err
		}
		return bw.Bytes(payload)
	}
	if err := bw.FourCC(c.ID); err != nil {
		return err
	}
	if err := bw.U32(uint32(len(c.Data))); err != nil {
		return err
	}
	if err := bw.Bytes(c.Data); err != nil {
		return err
	}
	if len(c.Data)%2 == 1 {
		return bw.U8(0)
	}
	return nil
}

// renderChildren serializes a slice of chunks into one contiguous buffer so
// the parent's size can be computed before anything is written to w.
func renderChildren(children []*Chunk, bigEndian bool) ([]byte, error) {
	buf := &sizingBuffer{}
	bw := byteio.NewWriter(buf)
	bw.BigEndian = bigEndian
	for _, ch := range children {
		if err := emitChunk(bw, ch, bigEndian); err != nil {
			return nil, err
		}
	}
	return buf.b, nil
}

type sizingBuffer struct{ b []byte }

func (s *sizingBuffer) Write(p []byte) (int, error) {
	s.b = append(s.b, p...)
	return len(p), nil
}
