package ysfc

import (
	"bytes"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

// waveformEntry is one sample window inside the waveform catalog: raw PCM
// embedded directly in the file, addressed by offset/length the same way
// a Kontakt monolith's inline sample is (spec: "waveform extraction").
type waveformEntry struct {
	ID         uint32
	Name       string
	SampleRate uint32
	Channels   uint16
	BitDepth   uint16
	PCMOffset  uint32
	PCMLength  uint32
}

func parseWaveformCatalog(catalog []byte, rawFile []byte) ([]waveformEntry, error) {
	br := byteio.NewReader(bytes.NewReader(catalog), "ysfc-waveform")
	br.BigEndian = true
	count, err := br.U32()
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_YSFC_TRUNCATED_WAVEFORM_CATALOG", "ysfc", err)
	}
	out := make([]waveformEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		id, _ := br.U32()
		sampleRate, _ := br.U32()
		channels, _ := br.U16()
		bitDepth, _ := br.U16()
		pcmOffset, _ := br.U32()
		pcmLength, _ := br.U32()
		nameLen, _ := br.U16()
		nameBytes, err := br.Bytes(int(nameLen) * 2)
		if err != nil {
			return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_YSFC_TRUNCATED_WAVEFORM_ENTRY", "ysfc", err)
		}
		name, err := byteio.DecodeUTF16BE(nameBytes)
		if err != nil {
			name = ""
		}
		out = append(out, waveformEntry{
			ID: id, Name: name, SampleRate: sampleRate,
			Channels: channels, BitDepth: bitDepth,
			PCMOffset: pcmOffset, PCMLength: pcmLength,
		})
	}
	for _, w := range out {
		if uint64(w.PCMOffset)+uint64(w.PCMLength) > uint64(len(rawFile)) {
			return nil, cwmerr.New(cwmerr.KindConstraintViolation, "IDS_YSFC_WAVEFORM_BOUNDS", "ysfc", nil)
		}
	}
	return out, nil
}

func (w waveformEntry) toSampleSource(rawFile []byte) model.SampleSource {
	window := rawFile[w.PCMOffset : w.PCMOffset+w.PCMLength]
	frames := int64(0)
	bytesPerFrame := int(w.Channels) * int(w.BitDepth) / 8
	if bytesPerFrame > 0 {
		frames = int64(len(window)) / int64(bytesPerFrame)
	}
	return &model.InMemorySample{
		Meta: model.AudioMetadata{
			Channels:   int(w.Channels),
			SampleRate: int(w.SampleRate),
			BitDepth:   int(w.BitDepth),
			Frames:     frames,
		},
		Data: window,
	}
}

// waveformsToStandaloneModel builds one single-zone instrument per
// waveform when no performance catalog maps them into zones.
func waveformsToStandaloneModel(waveforms []waveformEntry, rawFile []byte) []*model.MultiSampleSource {
	out := make([]*model.MultiSampleSource, 0, len(waveforms))
	for _, w := range waveforms {
		src := model.NewMultiSampleSource(w.Name)
		g := model.NewGroup(w.Name)
		z := model.NewZone(w.Name)
		z.Sample = w.toSampleSource(rawFile)
		src.Groups = append(src.Groups, g)
		g.Zones = append(g.Zones, z)
		out = append(out, src)
	}
	return out
}
