// Package ableton implements a reduced-fidelity reader for Ableton Live's
// device-preset formats of spec §4's component table (C8): ".adv" (a
// single device preset) and ".adg" (a device group), both a GZIP-
// compressed XML document read at the Ableton Live schema's "MultiSampler"/
// "MultiSampleMap" branch (no other device branch is read). Lighter depth per the component table's
// weighting: only the multi-sample-relevant subset of the schema (zone
// key/velocity ranges, root note, sample reference, loop) is modeled, and
// there is no write side — spec §4's component table lists no
// destination role for Ableton formats, unlike MPC Keygroups (S6).
package ableton

import (
	"encoding/xml"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/ziparc"
)

// xmlDoc mirrors the sampler-relevant branch of an Ableton device preset:
// a nested chain of wrapper elements down to a flat list of multi-sample
// parts, each one zone.
type xmlDoc struct {
	XMLName  xml.Name    `xml:"Ableton"`
	Sampler  xmlSampler  `xml:"MultiSampler"`
}

type xmlSampler struct {
	Name         string        `xml:"UserName,attr"`
	MultiSampleMap xmlSampleMap `xml:"MultiSampleMap"`
}

type xmlSampleMap struct {
	Parts []xmlPart `xml:"SampleParts>MultiSamplePart"`
}

type xmlPart struct {
	Name        string        `xml:"Name,attr"`
	RootKey     int           `xml:"RootKey,attr"`
	Detune      float64       `xml:"Detune,attr"`
	Volume      float64       `xml:"Volume,attr"`
	Panorama    float64       `xml:"Panorama,attr"`
	SampleStart int64         `xml:"SampleStart,attr"`
	SampleEnd   int64         `xml:"SampleEnd,attr"`
	KeyRange    xmlRange      `xml:"KeyRange"`
	VelRange    xmlRange      `xml:"VelocityRange"`
	SampleRef   xmlSampleRef  `xml:"SampleRef"`
	Loop        *xmlLoop      `xml:"Loop"`
}

type xmlRange struct {
	Min int `xml:"Min,attr"`
	Max int `xml:"Max,attr"`
}

type xmlSampleRef struct {
	FileRef xmlFileRef `xml:"FileRef"`
}

type xmlFileRef struct {
	Path string `xml:"Path,attr"`
}

type xmlLoop struct {
	On    bool  `xml:"On,attr"`
	Start int64 `xml:"Start,attr"`
	End   int64 `xml:"End,attr"`
}

// IsAbletonPreset reports whether data begins with the GZIP magic bytes
// Ableton's preset formats are always wrapped in.
func IsAbletonPreset(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// Decode parses an .adv/.adg preset's raw (GZIP-compressed) bytes into the
// canonical model, treating the whole file as a single group of zones
// (spec §4 C8 reduced depth: no nested-device-chain traversal).
func Decode(data []byte, name string, decodeSample model.Decoder) (*model.MultiSampleSource, error) {
	xmlBytes, err := ziparc.GzipDecompress(data)
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindIO, "IDS_ABLETON_GUNZIP", name, err)
	}
	var doc xmlDoc
	if err := xml.Unmarshal(xmlBytes, &doc); err != nil {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_ABLETON_BAD_XML", name, err)
	}
	presetName := doc.Sampler.Name
	if presetName == "" {
		presetName = name
	}
	src := model.NewMultiSampleSource(presetName)
	g := model.NewGroup(presetName)
	for _, p := range doc.Sampler.MultiSampleMap.Parts {
		g.Zones = append(g.Zones, partToZone(p, decodeSample))
	}
	src.Groups = append(src.Groups, g)
	return src, nil
}

func partToZone(p xmlPart, decodeSample model.Decoder) *model.Zone {
	z := model.NewZone(p.Name)
	z.Sample = model.NewFileSample(p.SampleRef.FileRef.Path, decodeSample)
	z.KeyLow, z.KeyHigh = p.KeyRange.Min, p.KeyRange.Max
	z.KeyRoot = model.Some(p.RootKey)
	z.VelLow, z.VelHigh = p.VelRange.Min, p.VelRange.Max
	z.Tune = p.Detune
	z.Gain = p.Volume
	z.Panning = p.Panorama
	z.Start = p.SampleStart
	z.Stop = p.SampleEnd
	if p.Loop != nil && p.Loop.On {
		z.Loops = append(z.Loops, model.Loop{Type: model.LoopForward, Start: p.Loop.Start, End: p.Loop.End})
	}
	return z
}
