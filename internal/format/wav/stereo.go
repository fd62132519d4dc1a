package wav

import (
	"sort"
	"strings"

	"github.com/go-audio/audio"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/pcm"
)

// DefaultSplitSuffixes is the configurable list of left/right filename
// marker pairs the merger tries, in priority order (spec §4.2).
var DefaultSplitSuffixes = [][2]string{
	{"_L", "_R"}, {"_l", "_r"}, {"-L", "-R"}, {".L", ".R"}, {" L", " R"}, {"Left", "Right"},
}

// StripSplitSuffix removes a recognized left/right marker from name and
// reports which side it was and whether any marker matched, so callers can
// derive the merged zone's shared display name.
func StripSplitSuffix(name string) (base string, isLeft, matched bool) {
	for _, pair := range DefaultSplitSuffixes {
		if strings.HasSuffix(name, pair[0]) {
			return strings.TrimSuffix(name, pair[0]), true, true
		}
		if strings.HasSuffix(name, pair[1]) {
			return strings.TrimSuffix(name, pair[1]), false, true
		}
	}
	return name, false, false
}

// MergeResult is the outcome of attempting to pair two mono zones into one
// stereo zone.
type MergeResult struct {
	Zone    *model.Zone
	Warning string // non-empty on a degraded ("left channel alone") merge
}

// MergeSplitStereo pairs left/right mono zones by matching root note and
// loop points, interleaving their PCM into one stereo buffer (spec §4.2:
// "If pairing fails... emit the left channel alone and log
// SplitStereoMergeFailed"). leftPCM/rightPCM are raw little-endian signed
// PCM at bitDepth.
func MergeSplitStereo(left, right *model.Zone, leftPCM, rightPCM []byte, bitDepth int) MergeResult {
	sameRoot := left.ResolvedKeyRoot() == right.ResolvedKeyRoot()
	sameLoops := loopsEqual(left.Loops, right.Loops)
	if !sameRoot || !sameLoops || len(leftPCM) == 0 {
		return MergeResult{Zone: left, Warning: "SplitStereoMergeFailed"}
	}

	bytesPerSample := bitDepth / 8
	leftInts := bytesToInts(leftPCM, bytesPerSample)
	rightInts := bytesToInts(rightPCM, bytesPerSample)
	n := len(leftInts)
	warning := ""
	if len(rightInts) != n {
		warning = "frame count mismatch: using min(len(L), len(R))"
		if len(rightInts) < n {
			n = len(rightInts)
		}
		leftInts = leftInts[:n]
		rightInts = rightInts[:n]
	}
	interleaved := pcm.Interleave(leftInts, rightInts)
	stereoPCM := intsToBytes(interleaved, bytesPerSample)

	merged := *left
	merged.Panning = 0
	merged.Sample = &model.InMemorySample{
		Meta: model.AudioMetadata{Channels: 2, SampleRate: sampleRateOf(left), BitDepth: bitDepth, Frames: int64(n)},
		Data: stereoPCM,
	}
	return MergeResult{Zone: &merged, Warning: warning}
}

func sampleRateOf(z *model.Zone) int {
	if z.Sample == nil {
		return 44100
	}
	meta, err := z.Sample.Metadata()
	if err != nil {
		return 44100
	}
	return meta.SampleRate
}

func loopsEqual(a, b []model.Loop) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func bytesToInts(b []byte, bps int) []int {
	n := len(b) / bps
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = int(readSigned(b[i*bps : i*bps+bps]))
	}
	return out
}

func intsToBytes(ints []int, bps int) []byte {
	out := make([]byte, len(ints)*bps)
	for i, v := range ints {
		putSample(out[i*bps:i*bps+bps], int32(v))
	}
	return out
}

// RewriteSpec bundles the options for the "sample rewriting path" of spec
// §4.2: convert bit depth/sample rate, optionally trim to the zone's
// start/stop range, and add/drop chunks.
type RewriteSpec struct {
	DestBitDepth   int
	DestSampleRate int
	TrimToZone     bool
	DropJunk       bool
	WriteBext      bool
	WriteInst      bool
	WriteSmpl      bool
}

// Rewrite applies spec §4.2's four-step sample rewriting path to one zone,
// returning the new WAV bytes and the (possibly shifted) start/stop/loop
// positions to store back on the zone.
func Rewrite(z *model.Zone, meta *model.Metadata, spec RewriteSpec) ([]byte, *model.Zone, error) {
	srcMeta, err := z.Sample.Metadata()
	if err != nil {
		return nil, nil, err
	}
	pcmData, err := z.Sample.PCM()
	if err != nil {
		return nil, nil, err
	}
	bytesPerSample := srcMeta.BitDepth / 8
	ints := bytesToInts(pcmData, bytesPerSample)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: srcMeta.SampleRate, NumChannels: srcMeta.Channels},
		Data:           ints,
		SourceBitDepth: srcMeta.BitDepth,
	}

	destBits := spec.DestBitDepth
	if destBits == 0 {
		destBits = srcMeta.BitDepth
	}
	destRate := spec.DestSampleRate
	if destRate == 0 {
		destRate = srcMeta.SampleRate
	}
	buf = pcm.Resample(buf, srcMeta.Channels, srcMeta.SampleRate, destRate)
	buf = pcm.ConvertBitDepth(buf, destBits)

	newZone := *z
	newZone.Start = pcm.RescaleFrame(z.Start, srcMeta.SampleRate, destRate)
	newZone.Stop = pcm.RescaleFrame(z.Stop, srcMeta.SampleRate, destRate)
	newLoops := make([]model.Loop, len(z.Loops))
	for i, l := range z.Loops {
		newLoops[i] = model.Loop{
			Type:  l.Type,
			Start: pcm.RescaleFrame(l.Start, srcMeta.SampleRate, destRate),
			End:   pcm.RescaleFrame(l.End, srcMeta.SampleRate, destRate),
		}
	}
	newZone.Loops = newLoops

	destBytesPerSample := destBits / 8
	frameCount := int64(len(buf.Data) / srcMeta.Channels)
	if spec.TrimToZone {
		trimLeft := newZone.Start
		trimRight := newZone.Stop
		if trimRight > frameCount {
			trimRight = frameCount
		}
		buf.Data = buf.Data[trimLeft*int64(srcMeta.Channels) : trimRight*int64(srcMeta.Channels)]
		shift := trimLeft
		newZone.Start = 0
		newZone.Stop = trimRight - trimLeft
		for i := range newZone.Loops {
			newZone.Loops[i].Start -= shift
			newZone.Loops[i].End -= shift
		}
		frameCount = newZone.Stop
	}

	out := &File{
		Fmt: FmtChunk{
			AudioFormat: FormatPCM, Channels: uint16(srcMeta.Channels), SampleRate: uint32(destRate),
			ByteRate: uint32(destRate * srcMeta.Channels * destBytesPerSample), BlockAlign: uint16(srcMeta.Channels * destBytesPerSample),
			BitsPerSample: uint16(destBits),
		},
		PCM: intsToBytes(buf.Data, destBytesPerSample),
	}
	if spec.WriteBext && meta != nil {
		out.Bext = BextFromMetadata(meta)
	}
	if spec.WriteInst {
		unity, _ := ToSmplTuning(newZone.ResolvedKeyRoot(), newZone.Tune)
		out.Inst = &InstChunk{
			UnshiftedNote: int8(unity), FineTune: int8(clampInt(int(newZone.Tune*100)%100, -50, 50)),
			Gain: int8(clampInt(int(newZone.Gain), -127, 127)),
			LowNote: int8(newZone.KeyLow), HighNote: int8(newZone.KeyHigh),
			LowVelocity: int8(newZone.VelLow), HighVelocity: int8(newZone.VelHigh),
		}
	}
	if spec.WriteSmpl && len(newZone.Loops) > 0 {
		unity, frac := ToSmplTuning(newZone.ResolvedKeyRoot(), newZone.Tune)
		out.Smpl = &SmplChunk{MIDIUnityNote: unity, MIDIPitchFraction: frac, Loops: LoopsFromModel(newZone.Loops)}
	}
	if spec.DropJunk {
		out.DropChunks("JUNK", "junk", "FLLR", "MD5")
	}
	data, err := Emit(out)
	return data, &newZone, err
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SortZonesByFilename is a small helper used by callers that need
// deterministic ordering when pairing split-stereo candidates.
func SortZonesByFilename(zones []*model.Zone) {
	sort.Slice(zones, func(i, j int) bool { return zones[i].Name < zones[j].Name })
}
