// Package sfz implements the SFZ codec of spec §4.5 / component C9: a
// tokenizer for the opcode/header text format, #include resolution with
// cycle detection, and bidirectional conversion against the canonical
// model.
package sfz

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/notekit"
)

// HeaderKind is one of the four SFZ scope markers.
type HeaderKind string

const (
	HeaderGlobal HeaderKind = "global"
	HeaderMaster HeaderKind = "master"
	HeaderGroup  HeaderKind = "group"
	HeaderRegion HeaderKind = "region"
)

// Token is either a header marker or an opcode assignment, in source order.
type Token struct {
	Header HeaderKind // set when this token is a <header> marker
	Opcode string     // set when this token is an opcode=value pair
	Value  string
}

var headerRe = regexp.MustCompile(`<(global|master|group|region)>`)
var opcodeRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)=`)
var opcodeEndRe = regexp.MustCompile(`\s+[A-Za-z_][A-Za-z0-9_]*=|\s+<`)
var includeRe = regexp.MustCompile(`#include\s+"([^"]+)"`)
var defineRe = regexp.MustCompile(`#define\s+(\$\S+)\s+(\S+)`)

// Tokenize loads path and every file it #includes (recursively, relative to
// the including file, with cycle detection per spec §4.5) and returns the
// flattened token stream.
func Tokenize(path string) ([]Token, error) {
	return tokenizeWithVisited(path, map[string]bool{})
}

func tokenizeWithVisited(path string, visited map[string]bool) ([]Token, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindIO, "IDS_ERR_SFZ_PATH", path, err)
	}
	if visited[abs] {
		return nil, cwmerr.New(cwmerr.KindCycleDetected, "IDS_ERR_SFZ_INCLUDE_CYCLE", path, nil)
	}
	visited[abs] = true
	defer delete(visited, abs)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindIO, "IDS_ERR_SFZ_READ", path, err)
	}
	defines := map[string]string{}
	var tokens []Token
	dir := filepath.Dir(path)

	for _, rawLine := range strings.Split(string(data), "\n") {
		line := stripComment(rawLine)
		if line == "" {
			continue
		}
		if m := defineRe.FindStringSubmatch(line); m != nil {
			defines[m[1]] = m[2]
			continue
		}
		if m := includeRe.FindStringSubmatch(line); m != nil {
			incPath := filepath.Join(dir, m[1])
			incTokens, err := tokenizeWithVisited(incPath, visited)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, incTokens...)
			continue
		}
		line = applyDefines(line, defines)
		tokens = append(tokens, tokenizeLine(line)...)
	}
	return tokens, nil
}

func stripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

func applyDefines(line string, defines map[string]string) string {
	for k, v := range defines {
		line = strings.ReplaceAll(line, k, v)
	}
	return line
}

func tokenizeLine(line string) []Token {
	var tokens []Token
	remaining := line
	for len(remaining) > 0 {
		remaining = strings.TrimSpace(remaining)
		if remaining == "" {
			break
		}
		if loc := headerRe.FindStringSubmatchIndex(remaining); loc != nil && loc[0] == 0 {
			kind := remaining[loc[2]:loc[3]]
			tokens = append(tokens, Token{Header: HeaderKind(kind)})
			remaining = remaining[loc[1]:]
			continue
		}
		if loc := opcodeRe.FindStringSubmatchIndex(remaining); loc != nil && loc[0] == 0 {
			name := remaining[loc[2]:loc[3]]
			rest := remaining[loc[1]:]
			end := len(rest)
			if next := opcodeEndRe.FindStringIndex(rest); next != nil {
				end = next[0]
			}
			value := strings.TrimSpace(rest[:end])
			tokens = append(tokens, Token{Opcode: name, Value: value})
			remaining = rest[end:]
			continue
		}
		// Unrecognized text (stray token) — skip one word to make progress.
		if idx := strings.IndexAny(remaining, " \t"); idx > 0 {
			remaining = remaining[idx:]
		} else {
			break
		}
	}
	return tokens
}

// opcodeNote parses an opcode value that may be a plain integer or a
// flat/sharp note name (spec §4.5: lokey/hikey/pitch_keycenter).
func opcodeNote(v string) (int, bool) {
	return notekit.ParseNoteName(v)
}

func mustFloat(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// region accumulates opcodes for one <region>, inheriting <global>/<master>/
// <group> scope values that were in effect when it opened.
type region struct {
	opcodes map[string]string
}

func newRegion(inherited map[string]string) *region {
	r := &region{opcodes: map[string]string{}}
	for k, v := range inherited {
		r.opcodes[k] = v
	}
	return r
}

// Decode parses the token stream into a MultiSampleSource. Global/master/
// group opcodes are merged down into each region's scope per SFZ's
// inheritance rule before the region is converted to a Zone. decodeSample,
// if non-nil, becomes the model.Decoder every produced Zone's FileSample
// uses (the WAV codec's Decode in normal operation).
func Decode(tokens []Token, name string, decodeSample model.Decoder) (*model.MultiSampleSource, error) {
	src := model.NewMultiSampleSource(name)
	globalScope := map[string]string{}
	masterScope := map[string]string{}
	groupScope := map[string]string{}
	var currentGroup *model.Group
	var pending *region
	var currentHeader HeaderKind

	flush := func() error {
		if pending == nil {
			return nil
		}
		zone, err := regionToZone(pending, decodeSample)
		if err != nil {
			return err
		}
		if currentGroup == nil {
			currentGroup = model.NewGroup("Group 1")
			src.Groups = append(src.Groups, currentGroup)
		}
		currentGroup.Zones = append(currentGroup.Zones, zone)
		pending = nil
		return nil
	}

	for _, tok := range tokens {
		if tok.Header != "" {
			if err := flush(); err != nil {
				return nil, err
			}
			currentHeader = tok.Header
			if tok.Header == HeaderGroup {
				currentGroup = model.NewGroup(fmt.Sprintf("Group %d", len(src.Groups)+1))
				src.Groups = append(src.Groups, currentGroup)
				groupScope = map[string]string{}
			}
			continue
		}
		switch currentHeader {
		case HeaderGlobal:
			globalScope[tok.Opcode] = tok.Value
		case HeaderMaster:
			masterScope[tok.Opcode] = tok.Value
		case HeaderGroup:
			groupScope[tok.Opcode] = tok.Value
			if tok.Opcode == "trigger" && currentGroup != nil {
				currentGroup.Trigger = model.Some(parseTrigger(tok.Value))
			}
		case HeaderRegion:
			if pending == nil {
				merged := map[string]string{}
				for k, v := range globalScope {
					merged[k] = v
				}
				for k, v := range masterScope {
					merged[k] = v
				}
				for k, v := range groupScope {
					merged[k] = v
				}
				pending = newRegion(merged)
			}
			pending.opcodes[tok.Opcode] = tok.Value
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return src, nil
}

func regionToZone(r *region, decodeSample model.Decoder) (*model.Zone, error) {
	samplePath, ok := r.opcodes["sample"]
	if !ok {
		return nil, cwmerr.New(cwmerr.KindConstraintViolation, "IDS_ERR_SFZ_NO_SAMPLE", "", nil)
	}
	z := model.NewZone(filepath.Base(samplePath))
	z.Sample = model.NewFileSample(samplePath, decodeSample)

	if v, ok := r.opcodes["lokey"]; ok {
		if n, ok := opcodeNote(v); ok {
			z.KeyLow = n
		}
	}
	if v, ok := r.opcodes["hikey"]; ok {
		if n, ok := opcodeNote(v); ok {
			z.KeyHigh = n
		}
	}
	if v, ok := r.opcodes["pitch_keycenter"]; ok {
		if n, ok := opcodeNote(v); ok {
			z.KeyRoot = model.Some(n)
		}
	}
	if v, ok := r.opcodes["lovel"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			z.VelLow = n
		}
	}
	if v, ok := r.opcodes["hivel"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			z.VelHigh = n
		}
	}
	if v, ok := r.opcodes["offset"]; ok {
		z.Start = int64(mustFloat(v))
	}
	if v, ok := r.opcodes["end"]; ok {
		z.Stop = int64(mustFloat(v))
	}
	if v, ok := r.opcodes["pan"]; ok {
		z.Panning = mustFloat(v) / 100.0
	}
	if v, ok := r.opcodes["volume"]; ok {
		z.Gain = mustFloat(v)
	}
	tune := 0.0
	if v, ok := r.opcodes["tune"]; ok {
		tune += mustFloat(v) / 100.0
	}
	if v, ok := r.opcodes["transpose"]; ok {
		tune += mustFloat(v)
	}
	z.Tune = tune
	if v, ok := r.opcodes["pitch_keytrack"]; ok {
		z.KeyTracking = mustFloat(v) / 100.0
	}
	if v, ok := r.opcodes["bend_up"]; ok {
		z.BendUp = int(mustFloat(v))
	}
	if v, ok := r.opcodes["bend_down"]; ok {
		z.BendDown = int(mustFloat(v))
	}
	if v, ok := r.opcodes["seq_position"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			z.RRIndex = n
		}
	}
	if v, ok := r.opcodes["seq_length"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			z.PlayLogic = model.PlayRoundRobin
		}
	}

	loop := model.Loop{Type: model.LoopNone}
	if v, ok := r.opcodes["loop_mode"]; ok {
		loop.Type = parseLoopMode(v)
	}
	if v, ok := r.opcodes["loop_start"]; ok {
		loop.Start = int64(mustFloat(v))
	} else if v, ok := r.opcodes["loopstart"]; ok {
		loop.Start = int64(mustFloat(v))
	}
	if v, ok := r.opcodes["loop_end"]; ok {
		loop.End = int64(mustFloat(v))
	} else if v, ok := r.opcodes["loopend"]; ok {
		loop.End = int64(mustFloat(v))
	}
	if loop.Type != model.LoopNone {
		z.Loops = append(z.Loops, loop)
	}

	z.AmpEnv.Envelope = envelopeFromOpcodes(r.opcodes, "ampeg_")
	z.PitchEnv.Envelope = envelopeFromOpcodes(r.opcodes, "pitcheg_")
	if hasPrefixedOpcode(r.opcodes, "fileg_") {
		z.FilterEnv = model.NewEnvelopeModulator()
		z.FilterEnv.Envelope = envelopeFromOpcodes(r.opcodes, "fileg_")
	}

	if v, ok := r.opcodes["fil_type"]; ok {
		z.Filter = &model.Filter{Type: parseFilterType(v)}
		if c, ok := r.opcodes["cutoff"]; ok {
			z.Filter.Cutoff = mustFloat(c)
		}
		if res, ok := r.opcodes["resonance"]; ok {
			z.Filter.Resonance = mustFloat(res)
		}
	}

	return z, nil
}

func hasPrefixedOpcode(opcodes map[string]string, prefix string) bool {
	for k := range opcodes {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func envelopeFromOpcodes(opcodes map[string]string, prefix string) model.Envelope {
	env := *model.NewEnvelope()
	if v, ok := opcodes[prefix+"attack"]; ok {
		env.Attack = model.Some(mustFloat(v))
	}
	if v, ok := opcodes[prefix+"hold"]; ok {
		env.Hold = model.Some(mustFloat(v))
	}
	if v, ok := opcodes[prefix+"decay"]; ok {
		env.Decay = model.Some(mustFloat(v))
	}
	if v, ok := opcodes[prefix+"sustain"]; ok {
		env.Sustain = model.Some(mustFloat(v) / 100.0)
	}
	if v, ok := opcodes[prefix+"release"]; ok {
		env.Release = model.Some(mustFloat(v))
	}
	if v, ok := opcodes[prefix+"slope"]; ok {
		env.AttackSlope = mustFloat(v)
	}
	return env
}

func parseLoopMode(v string) model.LoopType {
	switch v {
	case "loop_continuous", "loop_sustain":
		return model.LoopForward
	case "bidir":
		return model.LoopAlternating
	default:
		return model.LoopNone
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

func parseFilterType(v string) model.FilterType {
	switch {
	case strings.HasPrefix(v, "hpf"):
		return model.FilterHighPass
	case strings.HasPrefix(v, "bpf"):
		return model.FilterBandPass
	default:
		return model.FilterLowPass
	}
}
