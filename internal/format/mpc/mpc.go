// Package mpc implements the Akai MPC ".xpm" Keygroup Program codec of
// spec §4's component table (C8): a plain (uncompressed) XML document
// describing one program's instrument-wide settings and a flat list of
// Keygroup/Layer entries, each layer a zone. Scenario S6 pins down the
// root-note convention this codec must use: MIDI note numbers follow the
// "C-1 = 0" scheme (middle C = 60), via internal/notekit, not the "B2"
// substring-match bug an earlier parser had.
package mpc

import (
	"encoding/xml"
	"strconv"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/notekit"
)

type xmlDoc struct {
	XMLName xml.Name    `xml:"MPCVObject"`
	Program xmlProgram  `xml:"Program"`
}

type xmlProgram struct {
	ProgramName string        `xml:"ProgramName"`
	Keygroups   []xmlKeygroup `xml:"Keygroups>Keygroup"`
}

type xmlKeygroup struct {
	Number int        `xml:"number,attr"`
	Layers []xmlLayer `xml:"Layers>Layer"`
}

type xmlLayer struct {
	Number     int     `xml:"number,attr"`
	SampleName string  `xml:"SampleName"`
	SampleFile string  `xml:"SampleFile"`
	RootNote   string  `xml:"RootNote"`
	LowNote    int     `xml:"LowNote"`
	HighNote   int     `xml:"HighNote"`
	LowVelocity  int   `xml:"VelStart"`
	HighVelocity int   `xml:"VelEnd"`
	Tune       float64 `xml:"Tune"`
	Pan        float64 `xml:"Pan"`
	Volume     float64 `xml:"Volume"`
	SampleStart int64  `xml:"SampleStart"`
	SampleEnd   int64  `xml:"SampleEnd"`
	LoopEnabled bool   `xml:"LoopEnabled"`
	LoopStart   int64  `xml:"LoopStart"`
	LoopEnd     int64  `xml:"LoopEnd"`
}

// Decode parses one .xpm document's bytes, one MultiSampleSource per
// program, each Keygroup becoming a Group and each Layer a Zone.
func Decode(data []byte, decodeSample model.Decoder) (*model.MultiSampleSource, error) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_MPC_BAD_XML", "xpm", err)
	}
	src := model.NewMultiSampleSource(doc.Program.ProgramName)
	for _, kg := range doc.Program.Keygroups {
		groupName := "Keygroup " + strconv.Itoa(kg.Number)
		g := model.NewGroup(groupName)
		for _, ly := range kg.Layers {
			g.Zones = append(g.Zones, layerToZone(ly, decodeSample))
		}
		src.Groups = append(src.Groups, g)
	}
	return src, nil
}

func layerToZone(ly xmlLayer, decodeSample model.Decoder) *model.Zone {
	name := ly.SampleName
	if name == "" {
		name = ly.SampleFile
	}
	z := model.NewZone(name)
	z.Sample = model.NewFileSample(ly.SampleFile, decodeSample)
	z.KeyLow, z.KeyHigh = ly.LowNote, ly.HighNote
	if n, ok := notekit.ParseNoteName(ly.RootNote); ok {
		z.KeyRoot = model.Some(n)
	}
	z.VelLow, z.VelHigh = ly.LowVelocity, ly.HighVelocity
	z.Tune = ly.Tune
	z.Panning = ly.Pan
	z.Gain = ly.Volume
	z.Start, z.Stop = ly.SampleStart, ly.SampleEnd
	if ly.LoopEnabled {
		z.Loops = append(z.Loops, model.Loop{Type: model.LoopForward, Start: ly.LoopStart, End: ly.LoopEnd})
	}
	return z
}

// Encode renders src as a single-program .xpm document, one Keygroup per
// Group and one Layer per Zone, root notes rendered through notekit so the
// "Eb2" vs "B2" regression scenario S6 describes cannot recur.
func Encode(src *model.MultiSampleSource) ([]byte, error) {
	doc := xmlDoc{Program: xmlProgram{ProgramName: src.Name}}
	for i, g := range src.Groups {
		kg := xmlKeygroup{Number: i}
		for j, z := range g.Zones {
			sampleFile := z.Name
			if fs, ok := z.Sample.(*model.FileSample); ok && fs.Path != "" {
				sampleFile = fs.Path
			}
			ly := xmlLayer{
				Number: j, SampleName: z.Name, SampleFile: sampleFile,
				RootNote: notekit.NameWithFlats(z.ResolvedKeyRoot()),
				LowNote: z.KeyLow, HighNote: z.KeyHigh,
				LowVelocity: z.VelLow, HighVelocity: z.VelHigh,
				Tune: z.Tune, Pan: z.Panning, Volume: z.Gain,
				SampleStart: z.Start, SampleEnd: z.Stop,
			}
			if len(z.Loops) > 0 {
				ly.LoopEnabled = true
				ly.LoopStart, ly.LoopEnd = z.Loops[0].Start, z.Loops[0].End
			}
			kg.Layers = append(kg.Layers, ly)
		}
		doc.Program.Keygroups = append(doc.Program.Keygroups, kg)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
