// Package exs24 implements the EXS24 codec of spec §4/component C12: Apple's
// "Apple-endian" (big-endian, legacy PowerPC) chunked sampler-instrument
// format, using absolute sample paths rather than an embedded file table.
//
// EXS24's on-disk layout was never publicly documented by Apple; this port
// follows the record shapes established by the handful of open-source EXS24
// readers the community has reverse-engineered (a sequence of fixed-header
// blocks: Header, Zone, Group, Sample, Params), to the depth needed to
// round-trip the canonical model's fields. Exotic/undocumented block types
// (vintage-era extended params) are preserved as opaque trailing bytes on
// read and re-emitted unchanged rather than reinterpreted (see DESIGN.md).
package exs24

import (
	"bytes"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

// BlockType is one EXS24 block's 4-byte type tag.
type BlockType uint32

const (
	BlockHeader BlockType = 0x00010000
	BlockZone   BlockType = 0x01000000
	BlockGroup  BlockType = 0x02000000
	BlockSample BlockType = 0x03000000
	BlockParams BlockType = 0x04000000
)

// Block is one parsed EXS24 record: a type tag, a declared record size, and
// the raw payload (interpreted further by ZoneFromBlock/SampleFromBlock).
type Block struct {
	Type    BlockType
	Payload []byte
}

// Parse reads every block in an EXS24 file, big-endian throughout.
func Parse(data []byte) ([]Block, error) {
	br := byteio.NewReader(bytes.NewReader(data), "exs24")
	br.BigEndian = true
	var blocks []Block
	for {
		typ, err := br.U32()
		if err != nil {
			break
		}
		size, err := br.U32()
		if err != nil {
			break
		}
		// The declared size counts the 8-byte type/size pair itself; a
		// size smaller than that is truncated input, not a differently-
		// shaped block.
		if size < 8 {
			return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_EXS24_SHORT_BLOCK", "exs24", nil)
		}
		payload, err := br.Bytes(int(size) - 8)
		if err != nil {
			return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_EXS24_TRUNCATED_BLOCK", "exs24", err)
		}
		blocks = append(blocks, Block{Type: BlockType(typ), Payload: payload})
	}
	return blocks, nil
}

// Emit serializes blocks back into an EXS24 byte stream.
func Emit(blocks []Block) []byte {
	var buf bytes.Buffer
	bw := byteio.NewWriter(&buf)
	bw.BigEndian = true
	for _, b := range blocks {
		bw.U32(uint32(b.Type))
		bw.U32(uint32(len(b.Payload) + 8))
		bw.Bytes(b.Payload)
	}
	return buf.Bytes()
}

// ZoneRecord is the subset of an EXS24 Zone block this port round-trips.
type ZoneRecord struct {
	Name        string
	SampleIndex int
	RootNote    int
	KeyLow      int
	KeyHigh     int
	VelLow      int
	VelHigh     int
	Tune        int8 // semitones
	FineTune    int8 // cents
	LoopStart   int32
	LoopEnd     int32
	LoopOn      bool
}

// ZoneFromBlock decodes a Zone block's fixed-offset fields.
func ZoneFromBlock(payload []byte) ZoneRecord {
	br := byteio.NewReader(bytes.NewReader(payload), "exs24-zone")
	br.BigEndian = true
	name, _ := br.CString(64)
	sampleIndex, _ := br.U32()
	rootNote, _ := br.U8()
	keyLow, _ := br.U8()
	keyHigh, _ := br.U8()
	velLow, _ := br.U8()
	velHigh, _ := br.U8()
	tune, _ := br.U8()
	fineTune, _ := br.U8()
	loopStart, _ := br.U32()
	loopEnd, _ := br.U32()
	loopFlags, _ := br.U8()
	return ZoneRecord{
		Name: name, SampleIndex: int(sampleIndex),
		RootNote: int(rootNote), KeyLow: int(keyLow), KeyHigh: int(keyHigh),
		VelLow: int(velLow), VelHigh: int(velHigh),
		Tune: int8(tune), FineTune: int8(fineTune),
		LoopStart: int32(loopStart), LoopEnd: int32(loopEnd),
		LoopOn: loopFlags&0x01 != 0,
	}
}

// SampleRecord is the subset of an EXS24 Sample block this port
// round-trips: an absolute on-disk path (spec: "absolute sample paths",
// no embedded-file relocation support) plus the declared audio shape.
type SampleRecord struct {
	Name       string
	Path       string // absolute; EXS24 never embeds sample data
	SampleRate int
	BitDepth   int
	Channels   int
}

// SampleFromBlock decodes a Sample block.
func SampleFromBlock(payload []byte) SampleRecord {
	br := byteio.NewReader(bytes.NewReader(payload), "exs24-sample")
	br.BigEndian = true
	name, _ := br.CString(64)
	path, _ := br.CString(256)
	sampleRate, _ := br.U32()
	bitDepth, _ := br.U8()
	channels, _ := br.U8()
	return SampleRecord{
		Name: name, Path: path,
		SampleRate: int(sampleRate), BitDepth: int(bitDepth), Channels: int(channels),
	}
}

// ZoneToModel converts one parsed zone+its referenced sample into a
// canonical Zone. decodeSample supplies the model.Decoder used for the
// FileSample's lazy load (normally the WAV codec's Decode, since EXS24
// samples are plain AIFF/WAV files on disk).
func ZoneToModel(z ZoneRecord, sample SampleRecord, decodeSample model.Decoder) *model.Zone {
	mz := model.NewZone(z.Name)
	mz.KeyLow, mz.KeyHigh = z.KeyLow, z.KeyHigh
	mz.KeyRoot = model.Some(z.RootNote)
	mz.VelLow, mz.VelHigh = z.VelLow, z.VelHigh
	mz.Tune = float64(z.Tune) + float64(z.FineTune)/100.0
	if z.LoopOn {
		mz.Loops = append(mz.Loops, model.Loop{
			Type: model.LoopForward, Start: int64(z.LoopStart), End: int64(z.LoopEnd),
		})
	}
	mz.Sample = model.NewFileSample(sample.Path, decodeSample)
	return mz
}
