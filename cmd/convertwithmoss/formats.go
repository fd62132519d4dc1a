package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/ableton"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/bitwig"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/decent"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/kontakt"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/korg"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/maschine"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/misc"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/mpc"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/sf2"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/sfz"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/wav"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/ysfc"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/pipeline"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/settings"
)

// resolveFormats turns the --source/--target flag values into the detector
// table and emitter the driver runs. An empty --source list enables every
// known detector (spec §6: "omitted means try all").
func resolveFormats(sourceIDs []string, targetID string, store *settings.Store) (map[string]pipeline.Detector, pipeline.Emitter, error) {
	all := map[string]pipeline.Detector{
		".sfz":       detectSFZ,
		".dspreset":  detectDSPreset,
		".dslibrary": detectDSLibrary,
		".kmp":       detectKMP,
		".sf2":       detectSF2,
		".nki":       detectKontakt,
		".nkm":       detectKontakt,
		".mxsnd":     detectMaschine,
		".ysfc":      detectYSFC,
		".multisample": detectBitwig,
		".adv":       detectAbleton,
		".adg":       detectAbleton,
		".xpm":       detectMPC,
		".tal":       detectTAL,
		".txprogram": detectTX16Wx,
		".bitbox":    detectBitbox,
		".sxt":       detectNNXT,
	}

	detectors := all
	if len(sourceIDs) > 0 {
		detectors = map[string]pipeline.Detector{}
		for _, id := range sourceIDs {
			ext := "." + strings.TrimPrefix(strings.ToLower(id), ".")
			det, ok := all[ext]
			if !ok {
				return nil, nil, fmt.Errorf("unknown --source format %q", id)
			}
			detectors[ext] = det
		}
	}

	emit, err := resolveEmitter(targetID, store)
	if err != nil {
		return nil, nil, err
	}
	return detectors, emit, nil
}

func resolveEmitter(targetID string, store *settings.Store) (pipeline.Emitter, error) {
	switch strings.ToLower(targetID) {
	case "sfz":
		return emitSFZ, nil
	case "dspreset":
		return emitDSPreset, nil
	case "sf2":
		return emitSF2, nil
	case "kontakt1":
		return emitKontaktLegacy, nil
	case "bitwig":
		return emitBitwig, nil
	case "mpc":
		return emitMPC, nil
	case "korg", "kmp":
		return emitKorg, nil
	case "":
		return nil, fmt.Errorf("--target is required")
	default:
		return nil, fmt.Errorf("unknown --target format %q", targetID)
	}
}

// targetExt returns the primary output extension the driver should
// uniquify instrument names against before Emit runs (spec §8 property
// 7). Multi-file targets (Korg's .KMP+.KSF+.KSC trio) dedupe on the one
// extension collisions are actually checked against: the program file.
func targetExt(targetID string) string {
	switch strings.ToLower(targetID) {
	case "sfz":
		return ".sfz"
	case "dspreset":
		return ".dspreset"
	case "sf2":
		return ".sf2"
	case "kontakt1":
		return ".nki"
	case "bitwig":
		return ".multisample"
	case "mpc":
		return ".xpm"
	case "korg", "kmp":
		return ".kmp"
	default:
		return ""
	}
}

func detectSFZ(path string) ([]*model.MultiSampleSource, error) {
	tokens, err := sfz.Tokenize(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	src, err := sfz.Decode(tokens, name, wav.Decode)
	if err != nil {
		return nil, err
	}
	return []*model.MultiSampleSource{src}, nil
}

func detectDSPreset(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	src, err := decent.DecodePreset(data, name, wav.Decode)
	if err != nil {
		return nil, err
	}
	return []*model.MultiSampleSource{src}, nil
}

func detectDSLibrary(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decent.DecodeLibrary(data, wav.Decode)
}

func detectKMP(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name, zones, err := korg.ParseKMP(data)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	sampleFor := func(sampleName string) model.SampleSource {
		return model.NewFileSample(filepath.Join(dir, sampleName+".ksf"), decodeKSF)
	}
	src := model.NewMultiSampleSource(name)
	g := model.NewGroup(name)
	g.Zones = korg.ZonesToModel(zones, sampleFor)
	src.Groups = append(src.Groups, g)
	return []*model.MultiSampleSource{src}, nil
}

func decodeKSF(path string) (model.AudioMetadata, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.AudioMetadata{}, nil, err
	}
	header, pcm, err := korg.ParseKSF(data)
	if err != nil {
		return model.AudioMetadata{}, nil, err
	}
	return model.AudioMetadata{
		Channels:   1,
		SampleRate: header.SampleRate,
		BitDepth:   16,
		Frames:     int64(len(pcm) / 2),
	}, pcm, nil
}

func detectSF2(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	bank, err := sf2.Parse(data)
	if err != nil {
		return nil, err
	}
	sampleAt := func(sh sf2.SampleHeader) model.SampleSource {
		rate := int(sh.SampleRate)
		start := int(sh.Start) * 2
		end := int(sh.End) * 2
		if start < 0 || end > len(bank.SamplePCM) || start > end {
			return &model.InMemorySample{Meta: model.AudioMetadata{Channels: 1, SampleRate: rate, BitDepth: 16}}
		}
		return &model.InMemorySample{
			Meta: model.AudioMetadata{Channels: 1, SampleRate: rate, BitDepth: 16, Frames: int64((end - start) / 2)},
			Data: bank.SamplePCM[start:end],
		}
	}
	return sf2.ToModel(bank, sampleAt), nil
}

func detectKontakt(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	return kontakt.Decode(data, dir, []string{dir})
}

func emitKontaktLegacy(src *model.MultiSampleSource, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	program := kontaktProgramFromModel(src)
	data := kontakt.EmitLegacy([]kontakt.ProgramRecord{program})
	path := filepath.Join(destDir, src.Name+".nki")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// kontaktProgramFromModel narrows a canonical instrument down to the
// mapping/loop fields the Kontakt 1 dialect has room for; envelopes and
// filters have no slot in that record shape and are dropped.
func kontaktProgramFromModel(src *model.MultiSampleSource) kontakt.ProgramRecord {
	program := kontakt.ProgramRecord{Name: src.Name}
	for _, g := range src.Groups {
		group := kontakt.GroupRecord{Name: g.Name}
		for _, z := range g.Zones {
			zr := kontakt.ZoneRecord{
				KeyLow: z.KeyLow, KeyHigh: z.KeyHigh,
				VelLow: z.VelLow, VelHigh: z.VelHigh,
				RootNote:      z.ResolvedKeyRoot(),
				FineTuneCents: int(z.Tune * 100),
				GainDB:        z.Gain,
				Pan:           z.Panning,
			}
			if len(z.Loops) > 0 {
				zr.LoopOn = true
				zr.LoopStart = uint32(z.Loops[0].Start)
				zr.LoopEnd = uint32(z.Loops[0].End)
			}
			if fs, ok := z.Sample.(*model.FileSample); ok {
				zr.SampleRef = fs.Path
			}
			group.Zones = append(group.Zones, zr)
		}
		program.Groups = append(program.Groups, group)
	}
	return program
}

// detectMaschine reads a Boost-archive Maschine preset. There is no
// --target wiring for it: writing one requires a template preset to splice
// into (spec §4.7), and the CLI surface of spec §6 has no flag for
// supplying one, so this codec is read-only from the command line even
// though internal/format/maschine.EmitFromTemplate exists as a library call.
func detectMaschine(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !maschine.IsArchive(data) {
		return nil, nil
	}
	dir := filepath.Dir(path)
	src, err := maschine.Decode(data, dir, []string{dir})
	if err != nil {
		return nil, err
	}
	return []*model.MultiSampleSource{src}, nil
}

// detectYSFC reads a Yamaha Montage/MODX/MOXF/Motif export. There is no
// --target wiring: the component table lists no destination role for YSFC,
// unlike Kontakt and Maschine which both describe a write path explicitly.
func detectYSFC(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !ysfc.IsYSFC(data) {
		return nil, nil
	}
	return ysfc.Decode(data)
}

func detectBitwig(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src, err := bitwig.Decode(data, wav.Decode)
	if err != nil {
		return nil, err
	}
	return []*model.MultiSampleSource{src}, nil
}

// emitBitwig gathers every zone's decoded PCM into the sample-data map
// bitwig.Encode bundles alongside multisample.xml, keyed by the name each
// zone is given in the archive.
func emitBitwig(src *model.MultiSampleSource, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	sampleData := map[string][]byte{}
	for _, g := range src.Groups {
		for _, z := range g.Zones {
			if z.Sample == nil {
				continue
			}
			pcm, err := z.Sample.PCM()
			if err != nil {
				return nil, err
			}
			name := z.Name
			if fs, ok := z.Sample.(*model.FileSample); ok && fs.Path != "" {
				name = filepath.Base(fs.Path)
			}
			sampleData[name] = pcm
		}
	}
	data, err := bitwig.Encode(src, sampleData, time.Now())
	if err != nil {
		return nil, err
	}
	path := filepath.Join(destDir, src.Name+".multisample")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func detectAbleton(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !ableton.IsAbletonPreset(data) {
		return nil, nil
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	src, err := ableton.Decode(data, name, wav.Decode)
	if err != nil {
		return nil, err
	}
	return []*model.MultiSampleSource{src}, nil
}

func detectMPC(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src, err := mpc.Decode(data, wav.Decode)
	if err != nil {
		return nil, err
	}
	return []*model.MultiSampleSource{src}, nil
}

func emitMPC(src *model.MultiSampleSource, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	data, err := mpc.Encode(src)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(destDir, src.Name+".xpm")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// korgSampleRate/korgBitDepth are the Korg workstation's hard sample-rate
// and bit-depth ceiling (spec §4.6): every KSF is written 48kHz/16-bit
// mono regardless of the source zone's own format.
const (
	korgSampleRate = 48000
	korgBitDepth   = 16
)

// emitKorg flattens every zone across all groups (Korg has no group
// concept of its own) into one KMP program plus one KSF per zone, each
// rewritten to the workstation's forced sample rate and bit depth via
// wav.Rewrite, and a KSC manifest pointing at the KMP (spec §4.6, §8
// scenario S4: "a single .KSC").
func emitKorg(src *model.MultiSampleSource, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}

	var zones []*model.Zone
	for _, g := range src.Groups {
		zones = append(zones, g.Zones...)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].KeyHigh < zones[j].KeyHigh })
	if len(zones) > korg.MaxZones {
		zones = zones[:korg.MaxZones]
	}

	var paths []string
	used := map[string]bool{}
	dosNames := map[*model.Zone]string{}
	for _, z := range zones {
		if z.Sample == nil {
			dosNames[z] = "SKIPPEDSAMPL"
			continue
		}
		dosName := korg.UniqueDOSName(z.Name, used)
		dosNames[z] = dosName

		data, newZone, err := wav.Rewrite(z, nil, wav.RewriteSpec{DestBitDepth: korgBitDepth, DestSampleRate: korgSampleRate})
		if err != nil {
			return nil, err
		}
		rewritten, err := wav.Parse(data, z.Name)
		if err != nil {
			return nil, err
		}
		ksf := korg.EmitKSF(korg.KSFHeader{SampleRate: korgSampleRate}, rewritten.PCM)
		ksfPath := filepath.Join(destDir, dosName+".ksf")
		if err := os.WriteFile(ksfPath, ksf, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, ksfPath)
		*z = *newZone
	}

	records := korg.ModelToZones(zones, func(z *model.Zone) string { return dosNames[z] })
	kmpData, err := korg.EmitKMP(src.Name, records)
	if err != nil {
		return nil, err
	}
	kmpPath := filepath.Join(destDir, src.Name+".kmp")
	if err := os.WriteFile(kmpPath, kmpData, 0o644); err != nil {
		return nil, err
	}
	paths = append(paths, kmpPath)

	var kscBuf strings.Builder
	if err := korg.WriteKSC(&kscBuf, []string{src.Name + ".KMP"}); err != nil {
		return nil, err
	}
	kscPath := filepath.Join(destDir, src.Name+".ksc")
	if err := os.WriteFile(kscPath, []byte(kscBuf.String()), 0o644); err != nil {
		return nil, err
	}
	paths = append(paths, kscPath)

	return paths, nil
}

func detectTAL(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src, err := misc.DecodeTAL(data, wav.Decode)
	if err != nil {
		return nil, err
	}
	return []*model.MultiSampleSource{src}, nil
}

func detectTX16Wx(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src, err := misc.DecodeTX16Wx(data, wav.Decode)
	if err != nil {
		return nil, err
	}
	return []*model.MultiSampleSource{src}, nil
}

func detectBitbox(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src, err := misc.DecodeBitbox(data, wav.Decode)
	if err != nil {
		return nil, err
	}
	return []*model.MultiSampleSource{src}, nil
}

func detectNNXT(path string) ([]*model.MultiSampleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	src, err := misc.DecodeNNXT(data, name, wav.Decode)
	if err != nil {
		return nil, err
	}
	return []*model.MultiSampleSource{src}, nil
}

func emitSFZ(src *model.MultiSampleSource, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(destDir, src.Name+".sfz")
	if err := os.WriteFile(path, []byte(sfz.Emit(src)), 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func emitDSPreset(src *model.MultiSampleSource, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	data, err := decent.EncodePreset(src)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(destDir, src.Name+".dspreset")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func emitSF2(src *model.MultiSampleSource, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	data, err := sf2.EmitBank([]*model.MultiSampleSource{src})
	if err != nil {
		return nil, err
	}
	path := filepath.Join(destDir, src.Name+".sf2")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}
