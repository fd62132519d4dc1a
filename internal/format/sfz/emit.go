package sfz

import (
	"fmt"
	"strings"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/notekit"
)

// Emit renders src as SFZ text. Per spec §4.5, only `group` and `region`
// headers are produced; any would-be `global` parameter is redistributed
// onto every region instead, since nothing downstream can be relied on to
// still honor <global> scoping once the model's been round-tripped through
// another format in between.
func Emit(src *model.MultiSampleSource) string {
	var b strings.Builder
	for _, g := range src.Groups {
		fmt.Fprintf(&b, "<group> group_label=%s", quoteIfNeeded(g.Name))
		if trig, ok := g.Trigger.Get(); ok {
			fmt.Fprintf(&b, " trigger=%s", triggerOpcode(trig))
		}
		b.WriteString("\n")
		for _, z := range g.Zones {
			emitRegion(&b, z)
		}
	}
	return b.String()
}

func emitRegion(b *strings.Builder, z *model.Zone) {
	b.WriteString("<region>")
	samplePath := z.Name
	if fs, ok := z.Sample.(*model.FileSample); ok && fs.Path != "" {
		samplePath = fs.Path
	}
	fmt.Fprintf(b, " sample=%s", samplePath)
	fmt.Fprintf(b, " lokey=%d hikey=%d", z.KeyLow, z.KeyHigh)
	if root, ok := z.KeyRoot.Get(); ok {
		fmt.Fprintf(b, " pitch_keycenter=%s", notekit.MIDIToName(root))
	}
	fmt.Fprintf(b, " lovel=%d hivel=%d", z.VelLow, z.VelHigh)
	if z.Start != 0 {
		fmt.Fprintf(b, " offset=%d", z.Start)
	}
	if z.Stop != 0 {
		fmt.Fprintf(b, " end=%d", z.Stop)
	}
	if z.Panning != 0 {
		fmt.Fprintf(b, " pan=%g", z.Panning*100)
	}
	if z.Gain != 0 {
		fmt.Fprintf(b, " volume=%g", z.Gain)
	}
	if z.Tune != 0 {
		fmt.Fprintf(b, " tune=%g", z.Tune*100)
	}
	if z.KeyTracking != 1 {
		fmt.Fprintf(b, " pitch_keytrack=%g", z.KeyTracking*100)
	}
	if z.BendUp != 0 {
		fmt.Fprintf(b, " bend_up=%d", z.BendUp)
	}
	if z.BendDown != 0 {
		fmt.Fprintf(b, " bend_down=%d", z.BendDown)
	}
	if z.PlayLogic == model.PlayRoundRobin {
		fmt.Fprintf(b, " seq_position=%d", z.RRIndex+1)
	}
	for _, loop := range z.Loops {
		fmt.Fprintf(b, " loop_mode=%s loop_start=%d loop_end=%d", loopModeOpcode(loop.Type), loop.Start, loop.End)
	}
	emitEnvelope(b, "ampeg_", z.AmpEnv.Envelope)
	emitEnvelope(b, "pitcheg_", z.PitchEnv.Envelope)
	if z.FilterEnv != nil {
		emitEnvelope(b, "fileg_", z.FilterEnv.Envelope)
	}
	if z.Filter != nil {
		fmt.Fprintf(b, " fil_type=%s cutoff=%g resonance=%g", filterTypeOpcode(z.Filter.Type), z.Filter.Cutoff, z.Filter.Resonance)
	}
	b.WriteString("\n")
}

func emitEnvelope(b *strings.Builder, prefix string, env model.Envelope) {
	if v, ok := env.Attack.Get(); ok {
		fmt.Fprintf(b, " %sattack=%g", prefix, v)
	}
	if v, ok := env.Hold.Get(); ok {
		fmt.Fprintf(b, " %shold=%g", prefix, v)
	}
	if v, ok := env.Decay.Get(); ok {
		fmt.Fprintf(b, " %sdecay=%g", prefix, v)
	}
	if v, ok := env.Sustain.Get(); ok {
		fmt.Fprintf(b, " %ssustain=%g", prefix, v*100)
	}
	if v, ok := env.Release.Get(); ok {
		fmt.Fprintf(b, " %srelease=%g", prefix, v)
	}
}

func triggerOpcode(t model.TriggerType) string {
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

func loopModeOpcode(t model.LoopType) string {
	switch t {
	case model.LoopAlternating:
		return "bidir"
	case model.LoopForward, model.LoopBackward:
		return "loop_continuous"
	default:
		return "no_loop"
	}
}

func filterTypeOpcode(t model.FilterType) string {
	switch t {
	case model.FilterHighPass:
		return "hpf_2p"
	case model.FilterBandPass:
		return "bpf_2p"
	default:
		return "lpf_2p"
	}
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t") {
		return strings.ReplaceAll(s, " ", "_")
	}
	return s
}
