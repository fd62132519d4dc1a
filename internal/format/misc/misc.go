// Package misc implements the four lighter-depth, read-only detectors of
// spec §4's component table (C8) that round out the XML-format-codec
// bucket: TAL-Sampler, TX16Wx, 1010music (Bitbox/Blackbox), and Reason
// NN-XT. None of these has a destination role in spec §4's component
// table, so each is detect-and-decode only, at the reduced depth its
// weighting calls for: one group of flat zones, no per-format envelope or
// filter modeling beyond what the canonical model's zero-value Envelope/
// Filter already provide.
package misc

import (
	"bufio"
	"encoding/xml"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/notekit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// --- TAL-Sampler -----------------------------------------------------
//
// TAL's plugins persist state as a JUCE ValueTree serialized to XML; the
// sampler branch is a flat <ZONE> list under the root <PresetState>.

type talDoc struct {
	XMLName xml.Name  `xml:"PresetState"`
	Name    string    `xml:"name,attr"`
	Zones   []talZone `xml:"ZONE"`
}

type talZone struct {
	File     string  `xml:"file,attr"`
	KeyLow   int     `xml:"keyLow,attr"`
	KeyHigh  int     `xml:"keyHigh,attr"`
	RootNote int     `xml:"rootNote,attr"`
	VelLow   int     `xml:"velLow,attr"`
	VelHigh  int     `xml:"velHigh,attr"`
	Tune     float64 `xml:"tune,attr"`
	Volume   float64 `xml:"volume,attr"`
}

// DecodeTAL parses a TAL-Sampler preset's XML bytes into a single-group
// instrument.
func DecodeTAL(data []byte, decodeSample model.Decoder) (*model.MultiSampleSource, error) {
	var doc talDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_TAL_BAD_XML", "tal", err)
	}
	src := model.NewMultiSampleSource(doc.Name)
	g := model.NewGroup(doc.Name)
	for _, tz := range doc.Zones {
		z := model.NewZone(tz.File)
		z.Sample = model.NewFileSample(tz.File, decodeSample)
		z.KeyLow, z.KeyHigh = tz.KeyLow, tz.KeyHigh
		z.KeyRoot = model.Some(tz.RootNote)
		z.VelLow, z.VelHigh = tz.VelLow, tz.VelHigh
		z.Tune = tz.Tune
		z.Gain = tz.Volume
		g.Zones = append(g.Zones, z)
	}
	src.Groups = append(src.Groups, g)
	return src, nil
}

// --- TX16Wx -----------------------------------------------------------
//
// TX16Wx programs are XML with a <Program><Zone> schema close to TAL's,
// but note ranges are given as note names rather than MIDI integers.

type tx16wxDoc struct {
	XMLName xml.Name       `xml:"Program"`
	Name    string         `xml:"name,attr"`
	Zones   []tx16wxZone   `xml:"Zone"`
}

type tx16wxZone struct {
	Sample    string  `xml:"sample,attr"`
	LowKey    string  `xml:"lowKey,attr"`
	HighKey   string  `xml:"highKey,attr"`
	RootKey   string  `xml:"rootKey,attr"`
	LowVel    int     `xml:"lowVelocity,attr"`
	HighVel   int     `xml:"highVelocity,attr"`
	Transpose float64 `xml:"transpose,attr"`
	Gain      float64 `xml:"gain,attr"`
}

// DecodeTX16Wx parses a TX16Wx program's XML bytes into a single-group
// instrument, note-name attributes resolved through notekit.
func DecodeTX16Wx(data []byte, decodeSample model.Decoder) (*model.MultiSampleSource, error) {
	var doc tx16wxDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_TX16WX_BAD_XML", "tx16wx", err)
	}
	src := model.NewMultiSampleSource(doc.Name)
	g := model.NewGroup(doc.Name)
	for _, tz := range doc.Zones {
		z := model.NewZone(tz.Sample)
		z.Sample = model.NewFileSample(tz.Sample, decodeSample)
		if n, ok := notekit.ParseNoteName(tz.LowKey); ok {
			z.KeyLow = n
		}
		if n, ok := notekit.ParseNoteName(tz.HighKey); ok {
			z.KeyHigh = n
		}
		if n, ok := notekit.ParseNoteName(tz.RootKey); ok {
			z.KeyRoot = model.Some(n)
		}
		z.VelLow, z.VelHigh = tz.LowVel, tz.HighVel
		z.Tune = tz.Transpose
		z.Gain = tz.Gain
		g.Zones = append(g.Zones, z)
	}
	src.Groups = append(src.Groups, g)
	return src, nil
}

// --- 1010music (Bitbox/Blackbox) --------------------------------------
//
// 1010music hardware samplers store each project's cells in a JSON
// "preset.json" alongside the sample pool; every cell with a "type":
// "sample" maps to one zone.

type bitboxPreset struct {
	Name  string       `json:"name"`
	Cells []bitboxCell `json:"cells"`
}

type bitboxCell struct {
	Type     string  `json:"type"`
	File     string  `json:"file"`
	LowNote  int     `json:"lownote"`
	HighNote int     `json:"highnote"`
	RootNote int     `json:"rootnote"`
	LowVel   int     `json:"lowvel"`
	HighVel  int     `json:"highvel"`
	Gain     float64 `json:"gain"`
	Pan      float64 `json:"pan"`
}

// DecodeBitbox parses a 1010music preset.json's bytes into a single-group
// instrument, skipping cells that are not sample playback cells (effect
// and sequencer cells share the same array per the hardware's format).
func DecodeBitbox(data []byte, decodeSample model.Decoder) (*model.MultiSampleSource, error) {
	var preset bitboxPreset
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_BITBOX_BAD_JSON", "preset.json", err)
	}
	src := model.NewMultiSampleSource(preset.Name)
	g := model.NewGroup(preset.Name)
	for _, c := range preset.Cells {
		if c.Type != "sample" {
			continue
		}
		z := model.NewZone(c.File)
		z.Sample = model.NewFileSample(c.File, decodeSample)
		z.KeyLow, z.KeyHigh = c.LowNote, c.HighNote
		z.KeyRoot = model.Some(c.RootNote)
		z.VelLow, z.VelHigh = c.LowVel, c.HighVel
		z.Gain = c.Gain
		z.Panning = c.Pan
		g.Zones = append(g.Zones, z)
	}
	src.Groups = append(src.Groups, g)
	return src, nil
}

// --- Reason NN-XT ------------------------------------------------------
//
// NN-XT patches ("*.sxt") are a line-oriented property format, not XML:
// a flat list of "key value" pairs with repeated "Zone" blocks delimited
// by brace-less indentation. This port tokenizes it the way
// internal/format/sfz tokenizes SFZ's opcode stream: one token per
// key/value pair, zone boundaries marked by a sentinel key.

type nnxtZone struct {
	sampleFile string
	keyLow     int
	keyHigh    int
	rootNote   int
	velLow     int
	velHigh    int
	tune       float64
	gain       float64
}

// DecodeNNXT parses an NN-XT patch's text bytes into a single-group
// instrument. Unknown keys are ignored rather than rejected, since the
// format carries many synthesis parameters this port's canonical model
// has no slot for.
func DecodeNNXT(data []byte, name string, decodeSample model.Decoder) (*model.MultiSampleSource, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	src := model.NewMultiSampleSource(name)
	g := model.NewGroup(name)
	var cur *nnxtZone
	flush := func() {
		if cur == nil {
			return
		}
		z := model.NewZone(cur.sampleFile)
		z.Sample = model.NewFileSample(cur.sampleFile, decodeSample)
		z.KeyLow, z.KeyHigh = cur.keyLow, cur.keyHigh
		z.KeyRoot = model.Some(cur.rootNote)
		z.VelLow, z.VelHigh = cur.velLow, cur.velHigh
		z.Tune = cur.tune
		z.Gain = cur.gain
		g.Zones = append(g.Zones, z)
		cur = nil
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		switch key {
		case "Zone":
			flush()
			cur = &nnxtZone{}
		case "SampleFile":
			if cur != nil {
				cur.sampleFile = value
			}
		case "KeyLow":
			if cur != nil {
				cur.keyLow, _ = strconv.Atoi(value)
			}
		case "KeyHigh":
			if cur != nil {
				cur.keyHigh, _ = strconv.Atoi(value)
			}
		case "RootNote":
			if cur != nil {
				cur.rootNote, _ = strconv.Atoi(value)
			}
		case "VelLow":
			if cur != nil {
				cur.velLow, _ = strconv.Atoi(value)
			}
		case "VelHigh":
			if cur != nil {
				cur.velHigh, _ = strconv.Atoi(value)
			}
		case "Tune":
			if cur != nil {
				cur.tune, _ = strconv.ParseFloat(value, 64)
			}
		case "Gain":
			if cur != nil {
				cur.gain, _ = strconv.ParseFloat(value, 64)
			}
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, cwmerr.New(cwmerr.KindIO, "IDS_NNXT_SCAN", name, err)
	}
	src.Groups = append(src.Groups, g)
	return src, nil
}
