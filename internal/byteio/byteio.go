// Package byteio provides the endian-aware primitives every codec in this
// module is built on: fixed and variable-length integer reads, length-
// prefixed strings, and UTF-8/UTF-16/Windows-1252 decoding. No single
// library in the retrieval pack offers length-prefixed-string or mixed-
// endian-per-format primitives (go-audio/riff and go-audio/wav are
// fixed-endian WAV-only readers), so this layer is hand-rolled on top of
// encoding/binary; UTF-16 and legacy 8-bit decoding reuse golang.org/x/text
// rather than hand-rolled tables.
package byteio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
)

// Reader wraps an io.ReadSeeker with the little/big-endian primitives the
// codecs need, and reports truncation using the cwmerr taxonomy rather than
// a bare io.EOF so the pipeline driver can attribute it to a file/offset.
type Reader struct {
	R    io.ReadSeeker
	File string
	// BigEndian selects AIFF/SF2-on-big-endian-host style reads; most
	// callers leave this false (little-endian, the RIFF/WAV/Kontakt norm).
	BigEndian bool
}

func NewReader(r io.ReadSeeker, file string) *Reader {
	return &Reader{R: r, File: file}
}

func (r *Reader) order() binary.ByteOrder {
	if r.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (r *Reader) Offset() int64 {
	off, _ := r.R.Seek(0, io.SeekCurrent)
	return off
}

func (r *Reader) fail(cause error) error {
	if errors.Is(cause, io.EOF) || errors.Is(cause, io.ErrUnexpectedEOF) {
		return cwmerr.New(cwmerr.KindTruncated, "IDS_BYTEIO_TRUNCATED", r.File, cause).WithChunk("", r.Offset())
	}
	return cwmerr.New(cwmerr.KindIO, "IDS_BYTEIO_IO", r.File, cause).WithChunk("", r.Offset())
}

func (r *Reader) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.R, buf); err != nil {
		return nil, r.fail(err)
	}
	return buf, nil
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.readFull(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.readFull(2)
	if err != nil {
		return 0, err
	}
	return r.order().Uint16(b), nil
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.readFull(4)
	if err != nil {
		return 0, err
	}
	return r.order().Uint32(b), nil
}

func (r *Reader) U64() (uint64, error) {
	b, err := r.readFull(8)
	if err != nil {
		return 0, err
	}
	return r.order().Uint64(b), nil
}

func (r *Reader) I16() (int16, error) { v, err := r.U16(); return int16(v), err }
func (r *Reader) I32() (int32, error) { v, err := r.U32(); return int32(v), err }

// F32 reads an IEEE-754 32-bit float in the reader's byte order.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) { return r.readFull(n) }

// FourCC reads a 4-byte ASCII chunk id, e.g. "RIFF", "data".
func (r *Reader) FourCC() (string, error) {
	b, err := r.readFull(4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PString reads a Pascal-style string: one length byte then that many
// ASCII/Latin-1 bytes (Kontakt/Maschine string fields).
func (r *Reader) PString() (string, error) {
	n, err := r.U8()
	if err != nil {
		return "", err
	}
	b, err := r.readFull(int(n))
	if err != nil {
		return "", err
	}
	return DecodeWindows1252(b), nil
}

// PString16 reads a 16-bit-length-prefixed string (Kontakt FileList entries,
// YSFC text records), decoded as UTF-16LE.
func (r *Reader) PString16() (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	b, err := r.readFull(int(n) * 2)
	if err != nil {
		return "", err
	}
	return DecodeUTF16LE(b)
}

// CString reads a NUL-terminated ASCII string, up to max bytes.
func (r *Reader) CString(max int) (string, error) {
	buf := make([]byte, 0, 16)
	for i := 0; i < max; i++ {
		b, err := r.U8()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
	return string(buf), nil
}

// Seek repositions the underlying stream.
func (r *Reader) Seek(offset int64, whence int) (int64, error) { return r.R.Seek(offset, whence) }

// VarUint reads a continuation-bit variable-length unsigned integer (7
// payload bits per byte, high bit set on every byte but the last) — the
// same encoding protobuf/LEB128 use, and the one this port assumes for
// Maschine's "1- or 2-byte index as a little-endian variable-length
// number" row prefixes, since Boost's own archive varint encoding was
// never published alongside the format.
func (r *Reader) VarUint() (uint32, error) {
	var out uint32
	var shift uint
	for i := 0; i < 5; i++ {
		b, err := r.U8()
		if err != nil {
			return 0, err
		}
		out |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return out, nil
		}
		shift += 7
	}
	return 0, cwmerr.New(cwmerr.KindTruncated, "IDS_BYTEIO_VARINT_OVERFLOW", r.File, nil)
}

// DecodeUTF16LE decodes a UTF-16LE byte slice to a Go string using
// golang.org/x/text, trimming a trailing NUL pair if present.
func DecodeUTF16LE(b []byte) (string, error) {
	b = trimTrailingNUL16(b)
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DecodeUTF16BE decodes a UTF-16BE byte slice (EXS24/YSFC big-endian string
// tables).
func DecodeUTF16BE(b []byte) (string, error) {
	b = trimTrailingNUL16(b)
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func trimTrailingNUL16(b []byte) []byte {
	for len(b) >= 2 && b[len(b)-2] == 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-2]
	}
	return b
}

// EncodeUTF16LE is the write-side companion to DecodeUTF16LE (Kontakt
// FileList/name records, YSFC text records).
func EncodeUTF16LE(s string) []byte {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return nil
	}
	return out
}

// DecodeWindows1252 decodes legacy 8-bit Korg/Kontakt-1 DOS filenames and
// comment fields. Falls back to the raw bytes on decode failure.
func DecodeWindows1252(b []byte) string {
	b = bytes.TrimRight(b, "\x00")
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Writer is the companion write-only primitive set (C1's "write-only"
// emitter trait per spec §9's stream-seekability redesign note).
type Writer struct {
	W         io.Writer
	BigEndian bool
}

func NewWriter(w io.Writer) *Writer { return &Writer{W: w} }

func (w *Writer) order() binary.ByteOrder {
	if w.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (w *Writer) U8(v uint8) error  { _, err := w.W.Write([]byte{v}); return err }
func (w *Writer) U16(v uint16) error {
	b := make([]byte, 2)
	w.order().PutUint16(b, v)
	_, err := w.W.Write(b)
	return err
}
func (w *Writer) U32(v uint32) error {
	b := make([]byte, 4)
	w.order().PutUint32(b, v)
	_, err := w.W.Write(b)
	return err
}
func (w *Writer) U64(v uint64) error {
	b := make([]byte, 8)
	w.order().PutUint64(b, v)
	_, err := w.W.Write(b)
	return err
}
func (w *Writer) I32(v int32) error { return w.U32(uint32(v)) }
func (w *Writer) F32(v float32) error { return w.U32(math.Float32bits(v)) }

func (w *Writer) Bytes(b []byte) error { _, err := w.W.Write(b); return err }

func (w *Writer) FourCC(id string) error {
	if len(id) != 4 {
		return errors.New("byteio: FourCC must be exactly 4 bytes")
	}
	return w.Bytes([]byte(id))
}

func (w *Writer) PString(s string) error {
	if len(s) > 255 {
		s = s[:255]
	}
	if err := w.U8(uint8(len(s))); err != nil {
		return err
	}
	return w.Bytes([]byte(s))
}

func (w *Writer) CString(s string) error {
	if err := w.Bytes([]byte(s)); err != nil {
		return err
	}
	return w.U8(0)
}

// PString16 is the write-side companion to Reader.PString16: a 16-bit
// character count followed by UTF-16LE bytes.
func (w *Writer) PString16(s string) error {
	encoded := EncodeUTF16LE(s)
	if err := w.U16(uint16(len(encoded) / 2)); err != nil {
		return err
	}
	return w.Bytes(encoded)
}

// VarUint is the write-side companion to Reader.VarUint.
func (w *Writer) VarUint(v uint32) error {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		if err := w.U8(b); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}
