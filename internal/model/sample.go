package model

import "sync"

// InMemorySample is a SampleSource whose PCM already lives in memory (spec
// §3: SampleData "either in-memory bytes + audio metadata...").
type InMemorySample struct {
	Meta AudioMetadata
	Data []byte
}

func (s *InMemorySample) Metadata() (AudioMetadata, error) { return s.Meta, nil }
func (s *InMemorySample) PCM() ([]byte, error)             { return s.Data, nil }
func (s *InMemorySample) Evict()                           {}

// Decoder loads a file-backed sample's metadata and PCM. Each format codec
// that produces file-backed zones supplies its own Decoder (e.g. the WAV
// codec's Decode, the NCW decoder) — model stays independent of any one
// container format, avoiding an import cycle with internal/format/*.
type Decoder func(path string) (AudioMetadata, []byte, error)

// FileSample is a SampleSource backed by an external file, loaded lazily on
// first access and evicted after the destination writer consumes it (spec
// §3, §5: "SampleData is lazy... dropped as soon as the destination writer
// consumes them").
type FileSample struct {
	Path    string
	Decode  Decoder
	mu      sync.Mutex
	meta    AudioMetadata
	pcm     []byte
	metaSet bool
}

func NewFileSample(path string, decode Decoder) *FileSample {
	return &FileSample{Path: path, Decode: decode}
}

func (s *FileSample) Metadata() (AudioMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metaSet {
		return s.meta, nil
	}
	meta, pcm, err := s.Decode(s.Path)
	if err != nil {
		return AudioMetadata{}, err
	}
	s.meta, s.pcm, s.metaSet = meta, pcm, true
	return meta, nil
}

func (s *FileSample) PCM() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pcm != nil {
		return s.pcm, nil
	}
	meta, pcm, err := s.Decode(s.Path)
	if err != nil {
		return nil, err
	}
	s.meta, s.pcm, s.metaSet = meta, pcm, true
	return pcm, nil
}

func (s *FileSample) Evict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pcm = nil
}
