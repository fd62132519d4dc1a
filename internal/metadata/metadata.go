// Package metadata implements the metadata detector of spec §4's C5: infer
// display name/category/creator/keywords from a source file's path and
// filename using a configurable synonym table. Grounded on the teacher's
// internal/getbpm.parseName (lower-cased filename token scanning with a
// regex-per-concern) and internal/music note-name handling, generalized
// from "find a bpm token" to "find a category/creator token".
package metadata

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/notekit"
)

// SynonymTable maps a lower-cased keyword to the Category it implies. It is
// the configurable table spec §4's C5 calls for; callers may extend or
// replace Default.
type SynonymTable map[string]model.Category

// Default is the built-in synonym table, covering the common library
// naming conventions (e.g. Splice/Loopmasters-style pack folder names).
var Default = SynonymTable{
	"kick": model.CategoryDrum, "snare": model.CategoryDrum, "hat": model.CategoryDrum,
	"hihat": model.CategoryDrum, "clap": model.CategoryDrum, "perc": model.CategoryPercussion,
	"tom": model.CategoryDrum, "cymbal": model.CategoryDrum, "drumkit": model.CategoryDrumset,
	"drum kit": model.CategoryDrumset, "drumset": model.CategoryDrumset,
	"piano": model.CategoryPiano, "grand": model.CategoryPiano, "upright": model.CategoryPiano,
	"epiano": model.CategoryPiano, "rhodes": model.CategoryPiano, "wurlitzer": model.CategoryPiano,
	"bass": model.CategoryBass, "sub": model.CategoryBass,
	"brass": model.CategoryBrass, "trumpet": model.CategoryBrass, "trombone": model.CategoryBrass,
	"horn": model.CategoryBrass, "sax": model.CategoryBrass,
	"string": model.CategoryStrings, "strings": model.CategoryStrings, "violin": model.CategoryStrings,
	"cello": model.CategoryStrings, "orchestra": model.CategoryOrchestral, "orchestral": model.CategoryOrchestral,
	"guitar": model.CategoryGuitar, "harp": model.CategoryPluckedStr,
	"organ": model.CategoryOrgan, "choir": model.CategoryVocal, "vocal": model.CategoryVocal, "vox": model.CategoryVocal,
	"pad": model.CategoryPad, "synthpad": model.CategorySynthPad,
	"lead": model.CategorySynthLead, "synth": model.CategoryMonoSynth,
	"fx": model.CategoryFX, "sfx": model.CategorySoundFX,
	"chip": model.CategoryChip, "8bit": model.CategoryChip,
	"world": model.CategoryWorld, "ethnic": model.CategoryWorld,
	"wind": model.CategoryWinds, "flute": model.CategoryWinds, "clarinet": model.CategoryWinds,
	"sequence": model.CategorySequencer, "arp": model.CategorySequencer,
}

var tokenizer = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func tokenize(s string) []string {
	return tokenizer.Split(strings.ToLower(s), -1)
}

// Detect infers Metadata for one instrument whose display name comes from
// fileOrFolderName and whose path components are pathBreadcrumbs (outermost
// first — typically the library/creator folder, then subfolders, then the
// file name).
func Detect(pathBreadcrumbs []string, table SynonymTable) *model.Metadata {
	if table == nil {
		table = Default
	}
	meta := model.NewMetadata()
	allTokens := map[string]bool{}
	for _, comp := range pathBreadcrumbs {
		for _, tok := range tokenize(comp) {
			if tok == "" {
				continue
			}
			allTokens[tok] = true
		}
	}
	for tok := range allTokens {
		if cat, ok := table[tok]; ok {
			meta.SetCategory(cat)
			break
		}
	}
	// Velocity-layer / round-robin tokens and pure note names are not
	// useful keywords (too generic); everything else becomes a keyword,
	// the way a sample library's folder names ("Vintage", "Analog",
	// "Mellow") double as searchable tags.
	for tok := range allTokens {
		if _, isNote := looksLikeNoteOrVelocity(tok); isNote {
			continue
		}
		meta.AddKeyword(tok)
	}
	if len(pathBreadcrumbs) > 0 {
		meta.Creator = guessCreator(pathBreadcrumbs)
	}
	return meta
}

// DisplayName derives an instrument display name from a sample filename by
// stripping a trailing note/velocity/round-robin token run, e.g.
// "Piano_C3_v64" -> "Piano" (spec §8 scenario S1).
func DisplayName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	parts := strings.FieldsFunc(base, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	end := len(parts)
	for end > 0 {
		tok := strings.ToLower(parts[end-1])
		if _, ok := looksLikeNoteOrVelocity(tok); ok {
			end--
			continue
		}
		break
	}
	if end == 0 {
		return base
	}
	return strings.Join(parts[:end], " ")
}

var velocityToken = regexp.MustCompile(`^v\d{1,3}$`)
var rrToken = regexp.MustCompile(`^rr\d{1,2}$`)

func looksLikeNoteOrVelocity(tok string) (kind string, ok bool) {
	if velocityToken.MatchString(tok) {
		return "velocity", true
	}
	if rrToken.MatchString(tok) {
		return "roundrobin", true
	}
	if _, matched := noteNameOf(tok); matched {
		return "note", true
	}
	return "", false
}

// noteNameOf reuses notekit's flat-aware parser so folder/file tokens that
// are actually note names ("c3", "eb2") are filtered the same way note
// names are recognized elsewhere in the module.
func noteNameOf(tok string) (int, bool) {
	if len(tok) < 2 || len(tok) > 4 {
		return 0, false
	}
	return notekit.ParseNoteName(tok)
}

func guessCreator(breadcrumbs []string) string {
	// Convention: the outermost folder that isn't a generic container name
	// ("Samples", "Libraries", the drive root) is treated as the creator/
	// pack-brand folder.
	generic := map[string]bool{"samples": true, "libraries": true, "library": true, "sounds": true, "instruments": true}
	for _, comp := range breadcrumbs {
		name := strings.ToLower(filepath.Base(comp))
		if name == "" || generic[name] {
			continue
		}
		return filepath.Base(comp)
	}
	return ""
}
