// Package bitwig implements the Bitwig .multisample codec of spec §4.4,
// component C8: an uncompressed (STORED) ZIP archive whose root-level
// "multisample.xml" describes groups/zones, with sample files sitting
// alongside it at the archive root.
package bitwig

import (
	"bytes"
	"encoding/xml"
	"path/filepath"
	"time"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/ziparc"
)

// xmlDoc mirrors multisample.xml's schema (spec §4.4).
type xmlDoc struct {
	XMLName  xml.Name     `xml:"multisample"`
	Name     string       `xml:"name,attr"`
	Category string       `xml:"category,attr,omitempty"`
	Creator  string       `xml:"creator,attr,omitempty"`
	Groups   []xmlGroup   `xml:"group"`
}

type xmlGroup struct {
	Name    string     `xml:"name,attr"`
	Trigger string     `xml:"trigger,attr,omitempty"`
	Zones   []xmlZone  `xml:"sample"`
}

type xmlZone struct {
	File       string     `xml:"file,attr"`
	KeyLow     int        `xml:"key-low,attr"`
	KeyHigh    int        `xml:"key-high,attr"`
	KeyRoot    int        `xml:"key-root,attr"`
	VelLow     int        `xml:"vel-low,attr"`
	VelHigh    int        `xml:"vel-high,attr"`
	Gain       float64    `xml:"gain,attr,omitempty"`
	Pan        float64    `xml:"pan,attr,omitempty"`
	Tune       float64    `xml:"tune,attr,omitempty"`
	SampleStart int64     `xml:"sample-start,attr,omitempty"`
	SampleStop  int64     `xml:"sample-stop,attr,omitempty"`
	Loop       *xmlLoop   `xml:"loop,omitempty"`
	AmpEnv     *xmlEnv    `xml:"amp-envelope,omitempty"`
	FilterEnv  *xmlEnv    `xml:"filter-envelope,omitempty"`
	Filter     *xmlFilter `xml:"filter,omitempty"`
}

type xmlLoop struct {
	Mode  string `xml:"mode,attr"`
	Start int64  `xml:"start,attr"`
	Stop  int64  `xml:"stop,attr"`
}

type xmlEnv struct {
	Attack  float64 `xml:"attack,attr,omitempty"`
	Hold    float64 `xml:"hold,attr,omitempty"`
	Decay   float64 `xml:"decay,attr,omitempty"`
	Sustain float64 `xml:"sustain,attr,omitempty"`
	Release float64 `xml:"release,attr,omitempty"`
}

type xmlFilter struct {
	Type      string  `xml:"type,attr"`
	Cutoff    float64 `xml:"cutoff,attr"`
	Resonance float64 `xml:"resonance,attr"`
}

// Decode parses a .multisample archive's bytes into the canonical model.
func Decode(archive []byte, decodeSample model.Decoder) (*model.MultiSampleSource, error) {
	entries, err := ziparc.ReadZip(archive)
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindIO, "IDS_BITWIG_ZIP", "multisample", err)
	}
	xmlBytes, ok := entries["multisample.xml"]
	if !ok {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_BITWIG_NO_XML", "multisample", nil)
	}
	var doc xmlDoc
	if err := xml.Unmarshal(xmlBytes, &doc); err != nil {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_BITWIG_BAD_XML", "multisample.xml", err)
	}
	src := model.NewMultiSampleSource(doc.Name)
	src.Metadata.Creator = doc.Creator
	if doc.Category != "" {
		src.Metadata.SetCategory(model.Category(doc.Category))
	}
	for _, xg := range doc.Groups {
		g := model.NewGroup(xg.Name)
		if xg.Trigger != "" {
			g.Trigger = model.Some(parseTrigger(xg.Trigger))
		}
		for _, xz := range xg.Zones {
			g.Zones = append(g.Zones, zoneFromXML(xz, decodeSample))
		}
		src.Groups = append(src.Groups, g)
	}
	return src, nil
}

func zoneFromXML(xz xmlZone, decodeSample model.Decoder) *model.Zone {
	z := model.NewZone(xz.File)
	z.Sample = model.NewFileSample(xz.File, decodeSample)
	z.KeyLow, z.KeyHigh = xz.KeyLow, xz.KeyHigh
	z.KeyRoot = model.Some(xz.KeyRoot)
	z.VelLow, z.VelHigh = xz.VelLow, xz.VelHigh
	z.Gain = xz.Gain
	z.Panning = xz.Pan
	z.Tune = xz.Tune
	z.Start = xz.SampleStart
	z.Stop = xz.SampleStop
	if xz.Loop != nil {
		z.Loops = append(z.Loops, model.Loop{
			Type: parseLoopMode(xz.Loop.Mode), Start: xz.Loop.Start, End: xz.Loop.Stop,
		})
	}
	if xz.AmpEnv != nil {
		z.AmpEnv.Envelope = envFromXML(xz.AmpEnv)
	}
	if xz.FilterEnv != nil {
		z.FilterEnv = model.NewEnvelopeModulator()
		z.FilterEnv.Envelope = envFromXML(xz.FilterEnv)
	}
	if xz.Filter != nil {
		z.Filter = &model.Filter{
			Type: parseFilterType(xz.Filter.Type), Cutoff: xz.Filter.Cutoff, Resonance: xz.Filter.Resonance,
		}
	}
	return z
}

func envFromXML(e *xmlEnv) model.Envelope {
	env := *model.NewEnvelope()
	env.Attack = model.Some(e.Attack)
	env.Hold = model.Some(e.Hold)
	env.Decay = model.Some(e.Decay)
	env.Sustain = model.Some(e.Sustain)
	env.Release = model.Some(e.Release)
	return env
}

// Encode renders src as a STORED-method .multisample ZIP archive, with
// sample files supplied via sampleData (keyed by the same file name the
// XML references), and CRC-32 precomputed per entry (spec §4.4).
func Encode(src *model.MultiSampleSource, sampleData map[string][]byte, created time.Time) ([]byte, error) {
	doc := xmlDoc{Name: src.Name, Creator: src.Metadata.Creator, Category: string(src.Metadata.Category)}
	for _, g := range src.Groups {
		xg := xmlGroup{Name: g.Name}
		if trig, ok := g.Trigger.Get(); ok {
			xg.Trigger = triggerToXML(trig)
		}
		for _, z := range g.Zones {
			xg.Zones = append(xg.Zones, zoneToXML(z))
		}
		doc.Groups = append(doc.Groups, xg)
	}
	xmlBytes, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	xmlBytes = append([]byte(xml.Header), xmlBytes...)

	entries := []ziparc.Entry{{Name: "multisample.xml", Data: xmlBytes, Modified: created}}
	for name, data := range sampleData {
		entries = append(entries, ziparc.Entry{Name: name, Data: data, Modified: created})
	}
	var buf bytes.Buffer
	if err := ziparc.WriteStoredZip(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zoneToXML(z *model.Zone) xmlZone {
	name := z.Name
	if fs, ok := z.Sample.(*model.FileSample); ok && fs.Path != "" {
		name = filepath.Base(fs.Path)
	}
	xz := xmlZone{
		File: name, KeyLow: z.KeyLow, KeyHigh: z.KeyHigh,
		KeyRoot: z.ResolvedKeyRoot(), VelLow: z.VelLow, VelHigh: z.VelHigh,
		Gain: z.Gain, Pan: z.Panning, Tune: z.Tune,
		SampleStart: z.Start, SampleStop: z.Stop,
	}
	if len(z.Loops) > 0 {
		l := z.Loops[0]
		xz.Loop = &xmlLoop{Mode: loopModeToXML(l.Type), Start: l.Start, Stop: l.End}
	}
	xz.AmpEnv = envToXML(z.AmpEnv.Envelope)
	if z.FilterEnv != nil {
		xz.FilterEnv = envToXML(z.FilterEnv.Envelope)
	}
	if z.Filter != nil {
		xz.Filter = &xmlFilter{Type: filterTypeToXML(z.Filter.Type), Cutoff: z.Filter.Cutoff, Resonance: z.Filter.Resonance}
	}
	return xz
}

func envToXML(e model.Envelope) *xmlEnv {
	return &xmlEnv{
		Attack: e.Attack.OrElse(0), Hold: e.Hold.OrElse(0), Decay: e.Decay.OrElse(0),
		Sustain: e.Sustain.OrElse(1), Release: e.Release.OrElse(0),
	}
}

func parseTrigger(v string) model.TriggerType {
	switch v {
	case "release":
		return model.TriggerRelease
	case "first":
		return model.TriggerFirst
	case "legato":
		return model.TriggerLegato
	default:
		return model.TriggerAttack
	}
}

func triggerToXML(t model.TriggerType) string {
	switch t {
	case model.TriggerRelease:
		return "release"
	case model.TriggerFirst:
		return "first"
	case model.TriggerLegato:
		return "legato"
	default:
		return "attack"
	}
}

func parseLoopMode(v string) model.LoopType {
	switch v {
	case "loop":
		return model.LoopForward
	case "ping-pong":
		return model.LoopAlternating
	case "reverse":
		return model.LoopBackward
	default:
		return model.LoopNone
	}
}

func loopModeToXML(t model.LoopType) string {
	switch t {
	case model.LoopForward:
		return "loop"
	case model.LoopAlternating:
		return "ping-pong"
	case model.LoopBackward:
		return "reverse"
	default:
		return "off"
	}
}

func parseFilterType(v string) model.FilterType {
	switch v {
	case "high-pass":
		return model.FilterHighPass
	case "band-pass":
		return model.FilterBandPass
	case "notch":
		return model.FilterNotch
	default:
		return model.FilterLowPass
	}
}

func filterTypeToXML(t model.FilterType) string {
	switch t {
	case model.FilterHighPass:
		return "high-pass"
	case model.FilterBandPass:
		return "band-pass"
	case model.FilterNotch:
		return "notch"
	default:
		return "low-pass"
	}
}
