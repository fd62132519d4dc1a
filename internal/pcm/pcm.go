// Package pcm holds the sample-format conversion routines used by the WAV
// codec's rewrite path and stereo-split merger (spec §4.2): bit-depth
// requantization, sample-rate recalibration, and
// channel interleave/split. It operates on github.com/go-audio/audio's
// integer buffer type, the same PCM container the teacher's go-audio/wav
// dependency already hands back from a decode.
package pcm

import (
	"math"

	"github.com/go-audio/audio"
)

// Format describes a destination PCM shape (spec §4.2 step 1: "Convert
// input PCM to WAV at destination bit depth/sample rate").
type Format struct {
	BitDepth   int // 8, 16, 24, 32
	SampleRate int
	Channels   int
}

// ConvertBitDepth requantizes each sample in buf (taken as signed PCM at
// buf.SourceBitDepth) to dstBits, in place on a copy, without dithering
// (spec §4.2: "re-quantize; dither not required").
func ConvertBitDepth(buf *audio.IntBuffer, dstBits int) *audio.IntBuffer {
	srcBits := buf.SourceBitDepth
	if srcBits == 0 {
		srcBits = 16
	}
	if srcBits == dstBits {
		return buf
	}
	out := &audio.IntBuffer{
		Format:          buf.Format,
		Data:            make([]int, len(buf.Data)),
		SourceBitDepth:  dstBits,
	}
	shift := dstBits - srcBits
	for i, v := range buf.Data {
		if shift >= 0 {
			out.Data[i] = v << uint(shift)
		} else {
			out.Data[i] = v >> uint(-shift)
		}
	}
	return out
}

// Resample performs linear-interpolation resampling of interleaved integer
// PCM from srcRate to dstRate. It is not a replacement for a polyphase
// resampler, but it is sufficient for the sample-rate caps the destination
// formats in this module impose (spec §4.2, §4.6).
func Resample(buf *audio.IntBuffer, channels, srcRate, dstRate int) *audio.IntBuffer {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 || channels <= 0 {
		return buf
	}
	srcFrames := len(buf.Data) / channels
	dstFrames := int(math.Round(float64(srcFrames) * float64(dstRate) / float64(srcRate)))
	out := &audio.IntBuffer{Format: &audio.Format{SampleRate: dstRate, NumChannels: channels}, Data: make([]int, dstFrames*channels), SourceBitDepth: buf.SourceBitDepth}
	ratio := float64(srcFrames-1) / float64(maxInt(dstFrames-1, 1))
	for f := 0; f < dstFrames; f++ {
		srcPos := float64(f) * ratio
		i0 := int(math.Floor(srcPos))
		i1 := i0 + 1
		if i1 >= srcFrames {
			i1 = srcFrames - 1
		}
		frac := srcPos - float64(i0)
		for c := 0; c < channels; c++ {
			a := float64(buf.Data[i0*channels+c])
			b := float64(buf.Data[i1*channels+c])
			out.Data[f*channels+c] = int(math.Round(a + (b-a)*frac))
		}
	}
	return out
}

// RescaleFrame recomputes a single frame-position (sample start/stop, loop
// point) under a sample-rate change: round(pos * dstRate/srcRate) (spec
// property 4).
func RescaleFrame(pos int64, srcRate, dstRate int) int64 {
	if srcRate == dstRate || srcRate <= 0 {
		return pos
	}
	return int64(math.Round(float64(pos) * float64(dstRate) / float64(srcRate)))
}

// Interleave combines two mono integer slices (left, right) into one
// stereo-interleaved slice, truncating to the shorter input (spec §4.2
// stereo-split merger: "frame count equals min(len(L), len(R))").
func Interleave(left, right []int) []int {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	out := make([]int, n*2)
	for i := 0; i < n; i++ {
		out[i*2] = left[i]
		out[i*2+1] = right[i]
	}
	return out
}

// Split separates an interleaved stereo slice into independent mono slices.
func Split(interleaved []int) (left, right []int) {
	n := len(interleaved) / 2
	left = make([]int, n)
	right = make([]int, n)
	for i := 0; i < n; i++ {
		left[i] = interleaved[i*2]
		right[i] = interleaved[i*2+1]
	}
	return
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
