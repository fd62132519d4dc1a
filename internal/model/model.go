// Package model implements the canonical multi-sample data model of spec §3:
// the normalized in-memory representation every format codec reads into and
// writes out of. It carries forward the teacher's plain-struct,
// single-owner style (internal/model in the teacher owned a flat Model
// struct mutated in place by one goroutine; see DESIGN.md) but the shape
// here is a tree of groups/zones/samples rather than a sequencer's phrase
// grid, since the domains do not overlap.
package model

import "time"

// Category is a closed tag taxonomy value (spec §3 Metadata invariant).
type Category string

const (
	CategoryUnknown    Category = "Unknown"
	CategoryBass       Category = "Bass"
	CategoryBrass      Category = "Brass"
	CategoryChip       Category = "Chip"
	CategoryDrum       Category = "Drum"
	CategoryDrumset    Category = "Drumset"
	CategoryFX         Category = "FX"
	CategoryGuitar     Category = "Guitar"
	CategoryKeyboard   Category = "Keyboard"
	CategoryMonoSynth  Category = "Mono Synth"
	CategoryOrchestral Category = "Orchestral"
	CategoryOrgan      Category = "Organ"
	CategoryPad        Category = "Pad"
	CategoryPercussion Category = "Percussion"
	CategoryPiano      Category = "Piano"
	CategoryPluckedStr Category = "Plucked String"
	CategorySequencer  Category = "Sequencer"
	CategorySoundFX    Category = "Sound FX"
	CategoryStrings    Category = "Strings"
	CategorySynthLead  Category = "Synth Lead"
	CategorySynthPad   Category = "Synth Pad"
	CategoryVocal      Category = "Vocal"
	CategoryWinds      Category = "Winds"
	CategoryWorld      Category = "World"
)

// KnownCategories lists every well-known tag other than Unknown.
var KnownCategories = []Category{
	CategoryBass, CategoryBrass, CategoryChip, CategoryDrum, CategoryDrumset,
	CategoryFX, CategoryGuitar, CategoryKeyboard, CategoryMonoSynth,
	CategoryOrchestral, CategoryOrgan, CategoryPad, CategoryPercussion,
	CategoryPiano, CategoryPluckedStr, CategorySequencer, CategorySoundFX,
	CategoryStrings, CategorySynthLead, CategorySynthPad, CategoryVocal,
	CategoryWinds, CategoryWorld,
}

// IsKnownCategory reports whether c is one of the closed taxonomy tags.
func IsKnownCategory(c Category) bool {
	if c == CategoryUnknown {
		return true
	}
	for _, k := range KnownCategories {
		if k == c {
			return true
		}
	}
	return false
}

// Metadata is the instrument-level descriptive data (spec §3).
type Metadata struct {
	Creator     string
	Description string
	Category    Category
	Keywords    map[string]struct{}
	Created     time.Time
	Originator  string
}

// NewMetadata returns a Metadata with the category invariant satisfied.
func NewMetadata() *Metadata {
	return &Metadata{Category: CategoryUnknown, Keywords: map[string]struct{}{}}
}

// AddKeyword inserts a keyword into the set.
func (m *Metadata) AddKeyword(kw string) {
	if m.Keywords == nil {
		m.Keywords = map[string]struct{}{}
	}
	m.Keywords[kw] = struct{}{}
}

// SetCategory clamps to "Unknown" if c is not in the closed taxonomy,
// enforcing the Metadata invariant unconditionally rather than trusting
// callers.
func (m *Metadata) SetCategory(c Category) {
	if IsKnownCategory(c) {
		m.Category = c
		return
	}
	m.Category = CategoryUnknown
}

// TriggerType is a Group's optional playback trigger condition.
type TriggerType string

const (
	TriggerAttack  TriggerType = "Attack"
	TriggerRelease TriggerType = "Release"
	TriggerFirst   TriggerType = "First"
	TriggerLegato  TriggerType = "Legato"
)

// PlayLogic selects how a Zone participates in round-robin cycling.
type PlayLogic string

const (
	PlayAlways     PlayLogic = "Always"
	PlayRoundRobin PlayLogic = "RoundRobin"
)

// LoopType is one of the three loop shapes shared across every supported
// format (spec property 9: loop types map bijectively across SFZ/smpl/
// SF2/Bitwig).
type LoopType string

const (
	LoopNone        LoopType = "None"
	LoopForward     LoopType = "Forward"
	LoopAlternating LoopType = "Alternating"
	LoopBackward    LoopType = "Backward"
)

// Loop is one sustain-region loop point.
type Loop struct {
	Type             LoopType
	Start            int64 // frames
	End              int64 // frames
	CrossfadeFrames  int64
}

// FilterType enumerates the shared single-filter model (spec Non-goals:
// "one filter").
type FilterType string

const (
	FilterLowPass   FilterType = "LowPass"
	FilterHighPass  FilterType = "HighPass"
	FilterBandPass  FilterType = "BandPass"
	FilterNotch     FilterType = "Notch"
	FilterPeak      FilterType = "Peak"
	FilterLowPass1P FilterType = "LowPass1p"
)

// Envelope is an attack/hold/decay/sustain/release shape. Times are
// expressed in seconds; Optional values that are None mean "not set",
// which downstream emitters replace with a category-based default (spec
// §3).
type Envelope struct {
	Attack       Optional[float64]
	Hold         Optional[float64]
	Decay        Optional[float64]
	Sustain      Optional[float64] // 0..1, not time
	Release      Optional[float64]
	AttackSlope  float64 // -1..1
	DecaySlope   float64
	ReleaseSlope float64
}

// NewEnvelope returns an Envelope with every time field unset.
func NewEnvelope() *Envelope {
	return &Envelope{
		Attack:  None[float64](),
		Hold:    None[float64](),
		Decay:   None[float64](),
		Sustain: None[float64](),
		Release: None[float64](),
	}
}

// DefaultEnvelope returns the category-based fallback applied by emitters
// when a source's envelope left a stage unset (spec §3). Values are the
// defaults observed across the supported formats for "no curve specified".
func DefaultEnvelope(cat Category) Envelope {
	switch cat {
	case CategoryPiano, CategoryKeyboard, CategoryPluckedStr, CategoryGuitar:
		return Envelope{
			Attack: Some(0.001), Hold: Some(0.0), Decay: Some(0.0),
			Sustain: Some(1.0), Release: Some(0.05),
		}
	case CategoryPad, CategorySynthPad, CategoryStrings, CategoryOrchestral:
		return Envelope{
			Attack: Some(0.3), Hold: Some(0.0), Decay: Some(0.1),
			Sustain: Some(0.8), Release: Some(0.6),
		}
	default:
		return Envelope{
			Attack: Some(0.001), Hold: Some(0.0), Decay: Some(0.0),
			Sustain: Some(1.0), Release: Some(0.01),
		}
	}
}

// Resolved fills in every unset stage of e from the given default,
// returning a new fully-populated Envelope. The receiver is left unchanged.
func (e Envelope) Resolved(def Envelope) Envelope {
	out := e
	if !out.Attack.IsSet() {
		out.Attack = def.Attack
	}
	if !out.Hold.IsSet() {
		out.Hold = def.Hold
	}
	if !out.Decay.IsSet() {
		out.Decay = def.Decay
	}
	if !out.Sustain.IsSet() {
		out.Sustain = def.Sustain
	}
	if !out.Release.IsSet() {
		out.Release = def.Release
	}
	return out
}

// EnvelopeModulator owns an Envelope plus a modulation depth.
type EnvelopeModulator struct {
	Envelope Envelope
	Depth    float64 // -1..1
}

// NewEnvelopeModulator returns a modulator with an empty envelope and zero depth.
func NewEnvelopeModulator() *EnvelopeModulator {
	return &EnvelopeModulator{Envelope: *NewEnvelope()}
}

// Filter is the single shared filter model (spec §3).
type Filter struct {
	Type           FilterType
	Poles          int // 1, 2, or 4
	Cutoff         float64 // Hz
	Resonance      float64 // 0..1
	CutoffEnvMod   *EnvelopeModulator
	CutoffVelDepth float64 // velocity -> cutoff depth, -1..1
}

// AudioMetadata describes the physical shape of a sample's PCM data.
type AudioMetadata struct {
	Channels   int
	SampleRate int
	BitDepth   int
	Frames     int64
}

// SampleSource provides lazy access to a Zone's PCM data (spec §3:
// "either in-memory bytes + audio metadata, or a file reference that is
// lazily loaded on first access and evicted after write").
type SampleSource interface {
	// Metadata returns the audio shape without necessarily loading PCM.
	Metadata() (AudioMetadata, error)
	// PCM returns the entire decoded PCM, loading from disk/container on
	// first call if this source is file-backed.
	PCM() ([]byte, error)
	// Evict drops any cached decoded PCM, keeping only the metadata and
	// enough information to reload if asked again. Called after a writer
	// has consumed the data, to bound peak memory (spec §5).
	Evict()
}

// Zone is the atomic key/velocity mapping unit (spec §3).
type Zone struct {
	Name string

	Sample SampleSource

	KeyLow, KeyHigh int             // MIDI 0..127
	KeyRoot         Optional[int]   // MIDI 0..127; unset means "derive from range"
	VelLow, VelHigh int             // 0..127

	XFadeLoKey, XFadeHiKey int64 // crossfade widths, in MIDI keys (velocity steps for the Vel pair)
	XFadeLoVel, XFadeHiVel int64

	Start, Stop int64 // sample frames
	Reversed    bool
	KeyTracking float64 // 0..1
	Tune        float64 // semitones, fractional
	Gain        float64 // dB
	Panning     float64 // -1..1
	BendUp      int     // cents
	BendDown    int     // cents

	Loops []Loop

	AmpEnv      *EnvelopeModulator
	PitchEnv    *EnvelopeModulator
	AmpVelMod   *EnvelopeModulator
	PitchVelMod *EnvelopeModulator
	FilterEnv   *EnvelopeModulator // optional

	Filter *Filter // optional; nil means "no filter applied"

	PlayLogic PlayLogic
	RRIndex   int
}

// NewZone returns a Zone with the full MIDI key/velocity range, an unset
// root, and fresh (empty) modulators — the shape every codec reader starts
// from before narrowing to what the source file actually specifies.
func NewZone(name string) *Zone {
	return &Zone{
		Name:      name,
		KeyLow:    0,
		KeyHigh:   127,
		KeyRoot:   None[int](),
		VelLow:    0,
		VelHigh:   127,
		KeyTracking: 1,
		Gain:      0,
		Panning:   0,
		AmpEnv:    NewEnvelopeModulator(),
		PitchEnv:  NewEnvelopeModulator(),
		AmpVelMod: NewEnvelopeModulator(),
		PitchVelMod: NewEnvelopeModulator(),
		PlayLogic: PlayAlways,
	}
}

// ResolvedKeyRoot returns the root note, defaulting to the midpoint of the
// key range when unset (the derivation S1 in spec §8 relies on).
func (z *Zone) ResolvedKeyRoot() int {
	if v, ok := z.KeyRoot.Get(); ok {
		return v
	}
	return (z.KeyLow + z.KeyHigh) / 2
}

// Validate checks the Zone invariants from spec §3: 0 <= start <= stop <=
// frame_count; key_low <= key_root <= key_high when each is set; each Loop
// satisfies start <= end <= frame_count.
func (z *Zone) Validate(frameCount int64) error {
	if z.Start < 0 || z.Start > z.Stop || z.Stop > frameCount {
		return &InvariantError{Field: "start/stop", Detail: "0 <= start <= stop <= frame_count violated"}
	}
	if root, ok := z.KeyRoot.Get(); ok {
		if root < z.KeyLow || root > z.KeyHigh {
			return &InvariantError{Field: "key_root", Detail: "key_low <= key_root <= key_high violated"}
		}
	}
	for _, l := range z.Loops {
		if l.Start < 0 || l.Start > l.End || l.End > frameCount {
			return &InvariantError{Field: "loop", Detail: "0 <= loop.start <= loop.end <= frame_count violated"}
		}
	}
	return nil
}

// ClampKeyVel enforces property 5 (0 <= key_low <= key_root <= key_high <=
// 127, 0 <= vel_low <= vel_high <= 127), clamping out-of-range values
// in place and reporting whether a clamp occurred.
func (z *Zone) ClampKeyVel() (clamped bool) {
	clampInt := func(v *int, lo, hi int) {
		if *v < lo {
			*v = lo
			clamped = true
		}
		if *v > hi {
			*v = hi
			clamped = true
		}
	}
	clampInt(&z.KeyLow, 0, 127)
	clampInt(&z.KeyHigh, 0, 127)
	if z.KeyLow > z.KeyHigh {
		z.KeyLow, z.KeyHigh = z.KeyHigh, z.KeyLow
		clamped = true
	}
	clampInt(&z.VelLow, 0, 127)
	clampInt(&z.VelHigh, 0, 127)
	if z.VelLow > z.VelHigh {
		z.VelLow, z.VelHigh = z.VelHigh, z.VelLow
		clamped = true
	}
	if root, ok := z.KeyRoot.Get(); ok {
		if root < z.KeyLow || root > z.KeyHigh {
			r := root
			if r < z.KeyLow {
				r = z.KeyLow
			}
			if r > z.KeyHigh {
				r = z.KeyHigh
			}
			z.KeyRoot = Some(r)
			clamped = true
		}
	}
	return clamped
}

// Group is a named collection of zones sharing a trigger behavior.
type Group struct {
	Name    string
	Trigger Optional[TriggerType]
	Zones   []*Zone
}

// NewGroup returns an empty, named group.
func NewGroup(name string) *Group { return &Group{Name: name} }

// Prune removes nil zone entries and reports whether the
// group is now empty (spec §3: "a group is non-empty when emitted; empty
// groups are pruned").
func (g *Group) Prune() (empty bool) {
	kept := g.Zones[:0]
	for _, z := range g.Zones {
		if z != nil {
			kept = append(kept, z)
		}
	}
	g.Zones = kept
	return len(g.Zones) == 0
}

// ZoneChannels classifies a group's channel layout (spec §3).
type ZoneChannels string

const (
	ChannelsMono        ZoneChannels = "Mono"
	ChannelsStereo      ZoneChannels = "Stereo"
	ChannelsMixed       ZoneChannels = "Mixed"
	ChannelsSplitStereo ZoneChannels = "SplitStereo"
)

// Classify derives the group's ZoneChannels by inspecting each zone's
// sample channel count and panning. SplitStereo is detected when zones
// come in panning +-1 pairs sharing key/loop metadata.
func (g *Group) Classify() ZoneChannels {
	if len(g.Zones) == 0 {
		return ChannelsMono
	}
	sawMono, sawStereo, sawHardPan := false, false, false
	for _, z := range g.Zones {
		meta, err := z.Sample.Metadata()
		if err != nil {
			continue
		}
		switch meta.Channels {
		case 1:
			sawMono = true
			if z.Panning == 1 || z.Panning == -1 {
				sawHardPan = true
			}
		case 2:
			sawStereo = true
		default:
			sawMono = true
		}
	}
	switch {
	case sawMono && sawHardPan && !sawStereo && pairableByPan(g.Zones):
		return ChannelsSplitStereo
	case sawStereo && !sawMono:
		return ChannelsStereo
	case sawMono && !sawStereo:
		return ChannelsMono
	default:
		return ChannelsMixed
	}
}

// pairableByPan reports whether mono hard-panned zones can be paired two by
// two on matching root note and loop count, the precondition for treating
// a group as SplitStereo (spec §3 and §4.2's stereo-split merger).
func pairableByPan(zones []*Zone) bool {
	type key struct {
		root  int
		loops int
	}
	left := map[key]int{}
	right := map[key]int{}
	for _, z := range zones {
		k := key{root: z.ResolvedKeyRoot(), loops: len(z.Loops)}
		if z.Panning < 0 {
			left[k]++
		} else if z.Panning > 0 {
			right[k]++
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return false
	}
	for k, n := range left {
		if right[k] != n {
			return false
		}
	}
	return true
}

// MultiSampleSource is one instrument: the root of the canonical model
// (spec §3).
type MultiSampleSource struct {
	Name           string
	SourcePath     []string // breadcrumbs, outermost first
	Metadata       *Metadata
	GlobalFilter   *Filter
	GlobalAmpMod   *EnvelopeModulator
	Groups         []*Group
}

// NewMultiSampleSource returns an empty instrument with initialized metadata.
func NewMultiSampleSource(name string) *MultiSampleSource {
	return &MultiSampleSource{Name: name, Metadata: NewMetadata()}
}

// PruneEmptyGroups removes every group left empty after zone pruning,
// mutating in place (spec §3 Group invariant).
func (m *MultiSampleSource) PruneEmptyGroups() {
	kept := m.Groups[:0]
	for _, g := range m.Groups {
		if g.Prune() {
			continue
		}
		kept = append(kept, g)
	}
	m.Groups = kept
}

// InvariantError reports a canonical-model invariant violation.
type InvariantError struct {
	Field  string
	Detail string
}

func (e *InvariantError) Error() string { return "model: " + e.Field + ": " + e.Detail }
