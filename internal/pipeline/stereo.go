package pipeline

import (
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/wav"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/notifier"
)

// CombineSplitStereo merges every group classified as SplitStereo (spec
// §3's ZoneChannels, §4.2's stereo-split merger, §8 property 3) by pairing
// hard-panned mono zones sharing a root note and loop shape, interleaving
// their PCM via wav.MergeSplitStereo, and replacing the pair with one
// stereo zone. Pairing failures are logged through notify and fall back to
// emitting the left channel alone, dropping the right (spec §4.2: "If
// pairing fails... emit the left channel alone and log
// SplitStereoMergeFailed").
func CombineSplitStereo(src *model.MultiSampleSource, notify notifier.Notifier) {
	if notify == nil {
		notify = notifier.NoopNotifier{}
	}
	for _, g := range src.Groups {
		if g.Classify() != model.ChannelsSplitStereo {
			continue
		}
		g.Zones = mergePannedPairs(g.Zones, notify)
	}
}

func mergePannedPairs(zones []*model.Zone, notify notifier.Notifier) []*model.Zone {
	type key struct {
		root  int
		loops int
	}
	rightByKey := map[key]*model.Zone{}
	for _, z := range zones {
		if z.Panning > 0 {
			rightByKey[key{z.ResolvedKeyRoot(), len(z.Loops)}] = z
		}
	}
	used := map[*model.Zone]bool{}
	var out []*model.Zone
	for _, z := range zones {
		if z.Panning >= 0 || used[z] {
			continue
		}
		k := key{z.ResolvedKeyRoot(), len(z.Loops)}
		right, ok := rightByKey[k]
		if !ok || used[right] {
			out = append(out, z)
			continue
		}
		used[z] = true
		used[right] = true
		merged, ok := mergeStereoPair(z, right, notify)
		if !ok {
			// Pairing failed: emit the left channel alone, drop the right.
			out = append(out, z)
			continue
		}
		out = append(out, merged)
	}
	for _, z := range zones {
		if z.Panning == 0 && !used[z] {
			out = append(out, z)
		}
	}
	return out
}

// mergeStereoPair interleaves two mono zones' PCM into one stereo
// InMemorySample via wav.MergeSplitStereo, keeping the left zone's
// mapping/envelope/loop metadata (spec §3: "union the metadata").
func mergeStereoPair(left, right *model.Zone, notify notifier.Notifier) (*model.Zone, bool) {
	if left.Sample == nil || right.Sample == nil {
		notify.Log("IDS_PIPELINE_SPLIT_STEREO_MERGE_FAILED", left.Name, right.Name)
		return nil, false
	}
	lMeta, err := left.Sample.Metadata()
	if err != nil {
		notify.Log("IDS_PIPELINE_SPLIT_STEREO_MERGE_FAILED", left.Name, right.Name)
		return nil, false
	}
	rMeta, err := right.Sample.Metadata()
	if err != nil {
		notify.Log("IDS_PIPELINE_SPLIT_STEREO_MERGE_FAILED", left.Name, right.Name)
		return nil, false
	}
	if lMeta.BitDepth != rMeta.BitDepth || lMeta.SampleRate != rMeta.SampleRate {
		notify.Log("IDS_PIPELINE_SPLIT_STEREO_MERGE_FAILED", left.Name, right.Name)
		return nil, false
	}
	lPCM, err := left.Sample.PCM()
	if err != nil {
		notify.Log("IDS_PIPELINE_SPLIT_STEREO_MERGE_FAILED", left.Name, right.Name)
		return nil, false
	}
	rPCM, err := right.Sample.PCM()
	if err != nil {
		notify.Log("IDS_PIPELINE_SPLIT_STEREO_MERGE_FAILED", left.Name, right.Name)
		return nil, false
	}

	result := wav.MergeSplitStereo(left, right, lPCM, rPCM, lMeta.BitDepth)
	if result.Warning == "SplitStereoMergeFailed" {
		notify.Log("IDS_PIPELINE_SPLIT_STEREO_MERGE_FAILED", left.Name, right.Name)
		return nil, false
	}
	if result.Warning != "" {
		notify.Log("IDS_PIPELINE_SPLIT_STEREO_MERGE_DEGRADED", left.Name, right.Name, result.Warning)
	}
	return result.Zone, true
}
