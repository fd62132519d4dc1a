package kontakt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/format/wav"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

// newMonolithSample returns a lazily-decoded SampleSource for a sample
// embedded directly in the NKI/NKM file (spec §4.3: "a monolith: inline
// NCW/WAV samples appended to the file, indexed by offsets from the
// preset"). Decoding happens on first access and the window bytes are
// never copied out of rawFile until then, so an NKI referencing thousands
// of monolith samples doesn't hold every decoded PCM buffer at once (spec:
// "decode is one-shot and memory-freed immediately").
func newMonolithSample(rawFile []byte, offset, length int64) model.SampleSource {
	label := fmt.Sprintf("monolith@%d+%d", offset, length)
	return model.NewFileSample(label, func(string) (model.AudioMetadata, []byte, error) {
		return decodeMonolithWindow(rawFile, offset, length)
	})
}

func decodeMonolithWindow(rawFile []byte, offset, length int64) (model.AudioMetadata, []byte, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(rawFile)) {
		return model.AudioMetadata{}, nil, cwmerr.New(cwmerr.KindConstraintViolation, "IDS_KONTAKT_MONOLITH_BOUNDS", "kontakt", nil)
	}
	window := rawFile[offset : offset+length]
	if len(window) >= 4 && string(window[:4]) == "NCW1" {
		return wav.DecodeNCW(window, "monolith")
	}
	f, err := wav.Parse(window, "monolith")
	if err != nil {
		return model.AudioMetadata{}, nil, err
	}
	frames := int64(0)
	if f.Fmt.BlockAlign > 0 {
		frames = int64(len(f.PCM)) / int64(f.Fmt.BlockAlign)
	}
	return model.AudioMetadata{
		Channels:   int(f.Fmt.Channels),
		SampleRate: int(f.Fmt.SampleRate),
		BitDepth:   int(f.Fmt.BitsPerSample),
		Frames:     frames,
	}, f.PCM, nil
}

// decodeResolvedSample loads an on-disk sample a Kontakt file referenced by
// path (not a monolith window), dispatching to the NCW decoder or the plain
// WAV reader by extension.
func decodeResolvedSample(path string) (model.AudioMetadata, []byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".ncw") {
		data, err := os.ReadFile(path)
		if err != nil {
			return model.AudioMetadata{}, nil, cwmerr.New(cwmerr.KindIO, "IDS_KONTAKT_NCW_READ", path, err)
		}
		return wav.DecodeNCW(data, path)
	}
	return wav.Decode(path)
}
