// Package ziparc implements the compressed-container services of spec
// §4.4/§4.3 and component C7: STORED-method ZIP writing with precomputed
// CRC-32 (so entry order and a reader's CRC check are deterministic, spec
// property 8), per-entry timestamps, a GZIP wrapper for the Ableton ADV/ADG
// formats, and a ZLIB wrapper for Kontakt's inner Preset Chunk blob. Go's
// archive/zip, compress/gzip and compress/zlib already implement these
// container formats themselves to spec; nothing in the retrieval pack
// offers any of the three, so this is the one place in the module where
// the standard library is the correct and only choice (see DESIGN.md).
package ziparc

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"hash/crc32"
	"io"
	"time"
)

// Entry is one file to add to an archive.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// WriteStoredZip writes entries with method=Store and a precomputed CRC-32,
// matching Bitwig's uncompressed-ZIP .multisample convention (spec §4.4).
func WriteStoredZip(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		fh := &zip.FileHeader{
			Name:               e.Name,
			Method:             zip.Store,
			UncompressedSize64: uint64(len(e.Data)),
		}
		fh.SetModTime(e.Modified)
		fh.CRC32 = crc32.ChecksumIEEE(e.Data)
		// archive/zip recomputes CRC32 on Close for Store entries written
		// via Writer.CreateHeader + Write, but we keep the precomputed
		// value available on the header for callers inspecting it before
		// the stream is closed (spec property 8 requires it to match the
		// payload either way).
		entryWriter, err := zw.CreateHeader(fh)
		if err != nil {
			return err
		}
		if _, err := entryWriter.Write(e.Data); err != nil {
			return err
		}
	}
	return zw.Close()
}

// WriteCompressedZip writes entries with DEFLATE compression, the
// DecentSampler .dslibrary / Bitwig-container-of-containers convention.
func WriteCompressedZip(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		fh := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		fh.SetModTime(e.Modified)
		ew, err := zw.CreateHeader(fh)
		if err != nil {
			return err
		}
		if _, err := ew.Write(e.Data); err != nil {
			return err
		}
	}
	return zw.Close()
}

// ReadZip reads every entry out of a ZIP archive (used by the Bitwig and
// DecentSampler codec readers).
func ReadZip(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		out[f.Name] = b
	}
	return out, nil
}

// GzipCompress wraps data in a GZIP stream (Ableton .adv/.adg on-disk
// format).
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GzipDecompress reverses GzipCompress.
func GzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}

// ZlibCompress wraps data in a ZLIB stream, the inner Preset Chunk tree's
// compression for Kontakt v4.2.2+ and v5-7 (spec §4.3).
func ZlibCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ZlibDecompress reverses ZlibCompress.
func ZlibDecompress(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
