package ysfc

import (
	"bytes"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

// performanceZone is one mapping entry within a performance, referencing a
// waveform catalog entry by id rather than embedding sample data itself.
type performanceZone struct {
	KeyLow, KeyHigh int
	VelLow, VelHigh int
	RootNote        int
	FineTuneCents   int
	GainDB          float64
	Pan             float64
	WaveformID      uint32
}

type performanceEntry struct {
	Name  string
	Zones []performanceZone
}

func parsePerformanceCatalog(catalog []byte) ([]performanceEntry, error) {
	br := byteio.NewReader(bytes.NewReader(catalog), "ysfc-performance")
	br.BigEndian = true
	count, err := br.U32()
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_YSFC_TRUNCATED_PERFORMANCE_CATALOG", "ysfc", err)
	}
	out := make([]performanceEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		nameLen, err := br.U16()
		if err != nil {
			return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_YSFC_TRUNCATED_PERFORMANCE_ENTRY", "ysfc", err)
		}
		nameBytes, err := br.Bytes(int(nameLen) * 2)
		if err != nil {
			return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_YSFC_TRUNCATED_PERFORMANCE_ENTRY", "ysfc", err)
		}
		name, err := byteio.DecodeUTF16BE(nameBytes)
		if err != nil {
			name = ""
		}
		zoneCount, err := br.U32()
		if err != nil {
			return nil, cwmerr.New(cwmerr.KindTruncated, "IDS_YSFC_TRUNCATED_PERFORMANCE_ENTRY", "ysfc", err)
		}
		entry := performanceEntry{Name: name}
		for z := uint32(0); z < zoneCount; z++ {
			zone, err := readPerformanceZone(br)
			if err != nil {
				return nil, err
			}
			entry.Zones = append(entry.Zones, zone)
		}
		out = append(out, entry)
	}
	return out, nil
}

func readPerformanceZone(br *byteio.Reader) (performanceZone, error) {
	keyLow, _ := br.U8()
	keyHigh, _ := br.U8()
	velLow, _ := br.U8()
	velHigh, _ := br.U8()
	rootNote, _ := br.U8()
	fineTune, _ := br.I16()
	gainCenti, _ := br.I16()
	panRaw, _ := br.U8()
	waveformID, err := br.U32()
	if err != nil {
		return performanceZone{}, cwmerr.New(cwmerr.KindTruncated, "IDS_YSFC_TRUNCATED_ZONE", "ysfc", err)
	}
	return performanceZone{
		KeyLow: int(keyLow), KeyHigh: int(keyHigh),
		VelLow: int(velLow), VelHigh: int(velHigh),
		RootNote: int(rootNote), FineTuneCents: int(fineTune),
		GainDB: float64(gainCenti) / 100.0, Pan: float64(int8(panRaw)) / 100.0,
		WaveformID: waveformID,
	}, nil
}

// performancesToModel builds one MultiSampleSource per performance,
// resolving each zone's waveform reference by id.
func performancesToModel(performances []performanceEntry, waveforms []waveformEntry, rawFile []byte) []*model.MultiSampleSource {
	byID := make(map[uint32]waveformEntry, len(waveforms))
	for _, w := range waveforms {
		byID[w.ID] = w
	}

	out := make([]*model.MultiSampleSource, 0, len(performances))
	for _, p := range performances {
		src := model.NewMultiSampleSource(p.Name)
		g := model.NewGroup(p.Name)
		for _, z := range p.Zones {
			mz := model.NewZone(p.Name)
			mz.KeyLow, mz.KeyHigh = z.KeyLow, z.KeyHigh
			mz.VelLow, mz.VelHigh = z.VelLow, z.VelHigh
			mz.KeyRoot = model.Some(z.RootNote)
			mz.Tune = float64(z.FineTuneCents) / 100.0
			mz.Gain = z.GainDB
			mz.Panning = z.Pan
			if w, ok := byID[z.WaveformID]; ok {
				mz.Name = w.Name
				mz.Sample = w.toSampleSource(rawFile)
			}
			g.Zones = append(g.Zones, mz)
		}
		src.Groups = append(src.Groups, g)
		out = append(out, src)
	}
	return out
}
