// Package decent implements the DecentSampler codec of spec §4.4,
// component C8: a single ".dspreset" XML document, or multiple dspresets
// plus their samples bundled into a compressed-ZIP ".dslibrary". Shares
// its schema's shape with Bitwig's .multisample but tolerates: comments
// preceding the XML declaration, note numbers given as MIDI integers or
// flat/sharp text names, and absolute sample paths inside a library.
package decent

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/notekit"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/ziparc"
)

type xmlDoc struct {
	XMLName xml.Name  `xml:"DecentSampler"`
	Groups  xmlGroups `xml:"groups"`
}

type xmlGroups struct {
	Group []xmlGroup `xml:"group"`
}

type xmlGroup struct {
	Name    string     `xml:"name,attr"`
	Trigger string     `xml:"trigger,attr,omitempty"`
	Samples []xmlZone  `xml:"sample"`
}

type xmlZone struct {
	Path     string `xml:"path,attr"`
	LoNote   string `xml:"loNote,attr"`
	HiNote   string `xml:"hiNote,attr"`
	RootNote string `xml:"rootNote,attr"`
	LoVel    int    `xml:"loVel,attr,omitempty"`
	HiVel    int    `xml:"hiVel,attr,omitempty"`
	Start    int64  `xml:"start,attr,omitempty"`
	End      int64  `xml:"end,attr,omitempty"`
	Volume   string `xml:"volume,attr,omitempty"`
	Pan      float64 `xml:"pan,attr,omitempty"`
	Tuning   float64 `xml:"tuning,attr,omitempty"`
	LoopStart int64  `xml:"loopStart,attr,omitempty"`
	LoopEnd   int64  `xml:"loopEnd,attr,omitempty"`
}

// parseDSNote parses a DecentSampler note attribute, which may be a bare
// MIDI integer or a flat/sharp text name (spec §4.4 tolerance (b)).
func parseDSNote(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	return notekit.ParseNoteName(s)
}

// stripLeadingComments removes any XML/HTML-style comments and whitespace
// that precede the XML declaration (spec §4.4 tolerance (a): "comments
// before the XML declaration").
func stripLeadingComments(data []byte) []byte {
	s := string(data)
	for {
		trimmed := strings.TrimLeft(s, " \t\r\n")
		if strings.HasPrefix(trimmed, "<!--") {
			end := strings.Index(trimmed, "-->")
			if end < 0 {
				break
			}
			s = trimmed[end+3:]
			continue
		}
		s = trimmed
		break
	}
	return []byte(s)
}

// DecodePreset parses one .dspreset document's bytes.
func DecodePreset(data []byte, name string, decodeSample model.Decoder) (*model.MultiSampleSource, error) {
	data = stripLeadingComments(data)
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_DECENT_BAD_XML", name, err)
	}
	src := model.NewMultiSampleSource(name)
	for _, xg := range doc.Groups.Group {
		g := model.NewGroup(xg.Name)
		if xg.Trigger != "" {
			g.Trigger = model.Some(parseTrigger(xg.Trigger))
		}
		for _, xz := range xg.Samples {
			z := model.NewZone(displayNameFromPath(xz.Path))
			z.Sample = model.NewFileSample(xz.Path, decodeSample)
			if n, ok := parseDSNote(xz.LoNote); ok {
				z.KeyLow = n
			}
			if n, ok := parseDSNote(xz.HiNote); ok {
				z.KeyHigh = n
			}
			if n, ok := parseDSNote(xz.RootNote); ok {
				z.KeyRoot = model.Some(n)
			}
			z.VelLow, z.VelHigh = xz.LoVel, xz.HiVel
			z.Start, z.Stop = xz.Start, xz.End
			z.Panning = xz.Pan
			z.Tune = xz.Tuning
			if v, err := strconv.ParseFloat(xz.Volume, 64); err == nil {
				z.Gain = v
			}
			if xz.LoopEnd > xz.LoopStart {
				z.Loops = append(z.Loops, model.Loop{Type: model.LoopForward, Start: xz.LoopStart, End: xz.LoopEnd})
			}
			g.Zones = append(g.Zones, z)
		}
		src.Groups = append(src.Groups, g)
	}
	return src, nil
}

func displayNameFromPath(p string) string {
	idx := strings.LastIndexAny(p, "/\\")
	if idx >= 0 {
		return p[idx+1:]
	}
	return p
}

// EncodePreset renders src as standalone .dspreset XML text.
func EncodePreset(src *model.MultiSampleSource) ([]byte, error) {
	doc := xmlDoc{}
	for _, g := range src.Groups {
		xg := xmlGroup{Name: g.Name}
		if trig, ok := g.Trigger.Get(); ok {
			xg.Trigger = triggerToXML(trig)
		}
		for _, z := range g.Zones {
			path := z.Name
			if fs, ok := z.Sample.(*model.FileSample); ok && fs.Path != "" {
				path = fs.Path
			}
			xz := xmlZone{
				Path: path, LoNote: notekit.NameWithFlats(z.KeyLow), HiNote: notekit.NameWithFlats(z.KeyHigh),
				RootNote: notekit.NameWithFlats(z.ResolvedKeyRoot()), LoVel: z.VelLow, HiVel: z.VelHigh,
				Start: z.Start, End: z.Stop, Pan: z.Panning, Tuning: z.Tune,
				Volume: strconv.FormatFloat(z.Gain, 'g', -1, 64),
			}
			if len(z.Loops) > 0 {
				xz.LoopStart, xz.LoopEnd = z.Loops[0].Start, z.Loops[0].End
			}
			xg.Samples = append(xg.Samples, xz)
		}
		doc.Groups.Group = append(doc.Groups.Group, xg)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// DecodeLibrary unpacks a .dslibrary (compressed ZIP of multiple
// .dspreset files plus their samples) into one MultiSampleSource per
// .dspreset entry.
func DecodeLibrary(archive []byte, decodeSample model.Decoder) ([]*model.MultiSampleSource, error) {
	entries, err := ziparc.ReadZip(archive)
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindIO, "IDS_DECENT_ZIP", "dslibrary", err)
	}
	var out []*model.MultiSampleSource
	for name, data := range entries {
		if !strings.HasSuffix(strings.ToLower(name), ".dspreset") {
			continue
		}
		baseName := strings.TrimSuffix(displayNameFromPath(name), ".dspreset")
		src, err := DecodePreset(data, baseName, decodeSample)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// EncodeLibrary packs multiple instruments plus their sample payloads into
// one compressed .dslibrary ZIP.
func EncodeLibrary(sources []*model.MultiSampleSource, sampleData map[string][]byte, created time.Time) ([]byte, error) {
	var entries []ziparc.Entry
	for _, src := range sources {
		presetXML, err := EncodePreset(src)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ziparc.Entry{Name: src.Name + ".dspreset", Data: presetXML, Modified: created})
	}
	for name, data := range sampleData {
		entries = append(entries, ziparc.Entry{Name: name, Data: data, Modified: created})
	}
	var buf bytes.Buffer
	if err := ziparc.WriteCompressedZip(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
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
