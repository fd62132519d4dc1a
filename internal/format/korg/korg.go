// Package korg implements the Korg KMP/KSF/KSC codec of spec §4.6,
// component C11: a RIFF-like multisample program (KMP) with fixed chunk
// ids, per-zone fixed-size records, an independent 16-bit big-endian wave
// file (KSF) named by a 12-character DOS-style filename, and a plain-text
// library manifest (KSC).
package korg

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/byteio"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/chunk"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

// MaxZones is the strict Korg workstation limit (spec §4.6).
const MaxZones = 128

// ZoneRecord is one fixed-size KMP zone entry.
type ZoneRecord struct {
	RootNote    int  // MIDI note, key-track flag folded out of the high bit
	KeyTrack    bool // high bit of the root-note byte
	KeyHigh     int
	FineTuneCts int // -99..+99 cents
	GainRaw     int8
	SampleName  string // 12-char DOS-style name, or SKIPPEDSAMPL / INTERNAL<n>
}

const skippedSampleName = "SKIPPEDSAMPL"

// GainDB maps the Korg nonlinear -99..+99 signed-byte gain to dB (spec
// §4.6: "gain... mapped nonlinearly to dB"). The workstation's actual
// curve is proprietary; this port uses the commonly documented
// approximation of +-0.24 dB per step, doubling above +-50 — accurate
// near unity, inexact at the extremes (see DESIGN.md).
func GainDB(raw int8) float64 {
	v := float64(raw)
	switch {
	case v > 50:
		return 12 + (v-50)*0.48
	case v < -50:
		return -12 + (v+50)*0.48
	default:
		return v * 0.24
	}
}

func gainFromDB(db float64) int8 {
	var v float64
	switch {
	case db > 12:
		v = 50 + (db-12)/0.48
	case db < -12:
		v = -50 + (db+12)/0.48
	default:
		v = db / 0.24
	}
	if v > 99 {
		v = 99
	}
	if v < -99 {
		v = -99
	}
	return int8(v)
}

// ParseKMP parses a KMP byte stream into its zone records and multisample
// name.
// kmpNestedIDs is empty: every KMP sub-chunk (NAME, RLP1-3, MNO1) is a flat
// leaf, none of them itself contain a further id+size+payload sequence.
var kmpNestedIDs = map[string]bool{}

func ParseKMP(data []byte) (name string, zones []ZoneRecord, err error) {
	br := byteio.NewReader(bytes.NewReader(data), "kmp")
	magic, err := br.FourCC()
	if err != nil {
		return "", nil, err
	}
	if magic != "MSP1" {
		return "", nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_KORG_BADMAGIC", "kmp", nil)
	}
	size, err := br.U32()
	if err != nil {
		return "", nil, err
	}
	_ = size // declared chunk length; we trust structural walk over it

	chunks, err := chunk.ParseGeneric(br, 0, kmpNestedIDs)
	if err != nil {
		return "", nil, err
	}
	for _, c := range chunks {
		switch c.ID {
		case "NAME":
			name = strings.TrimRight(byteio.DecodeWindows1252(c.Data), " \x00")
		case "RLP1", "RLP2", "RLP3":
			parsed, perr := parseZoneRecords(c.Data)
			if perr != nil {
				return "", nil, perr
			}
			zones = append(zones, parsed...)
		case "MNO1":
			// Multisample number table; no model-level equivalent. It is
			// not parsed, and EmitKMP does not write it back.
		}
	}
	if len(zones) > MaxZones {
		zones = zones[:MaxZones]
	}
	return name, zones, nil
}

func parseZoneRecords(payload []byte) ([]ZoneRecord, error) {
	const recSize = 18
	var out []ZoneRecord
	br := byteio.NewReader(bytes.NewReader(payload), "kmp-zone")
	for {
		if br.Offset()+recSize > int64(len(payload)) {
			break
		}
		rootByte, err := br.U8()
		if err != nil {
			break
		}
		keyHigh, _ := br.U8()
		fineTune, _ := br.U8()
		gainRaw, _ := br.U8()
		nameBytes, err := br.Bytes(12)
		if err != nil {
			break
		}
		br.Bytes(2) // reserved/padding to reach recSize
		rec := ZoneRecord{
			RootNote:    int(rootByte & 0x7F),
			KeyTrack:    rootByte&0x80 != 0,
			KeyHigh:     int(keyHigh),
			FineTuneCts: int(int8(fineTune)),
			GainRaw:     int8(gainRaw),
			SampleName:  strings.TrimRight(byteio.DecodeWindows1252(nameBytes), " \x00"),
		}
		out = append(out, rec)
	}
	return out, nil
}

// EmitKMP serializes zones (already sorted by KeyHigh ascending — callers
// must sort before calling, spec §4.6: "or the workstation crashes") into a
// KMP byte stream.
func EmitKMP(name string, zones []ZoneRecord) ([]byte, error) {
	if !sortedByKeyHigh(zones) {
		return nil, cwmerr.New(cwmerr.KindConstraintViolation, "IDS_KORG_UNSORTED_ZONES", "", nil)
	}
	var buf bytes.Buffer
	bw := byteio.NewWriter(&buf)

	nameChunk := padTo(name, 16)
	zoneChunk := renderZones(zones)

	bw.FourCC("MSP1")
	bw.U32(uint32(4 + 8 + len(nameChunk) + 8 + len(zoneChunk)))
	bw.FourCC("NAME")
	bw.U32(uint32(len(nameChunk)))
	bw.Bytes([]byte(nameChunk))
	bw.FourCC("RLP1")
	bw.U32(uint32(len(zoneChunk)))
	bw.Bytes(zoneChunk)
	return buf.Bytes(), nil
}

func sortedByKeyHigh(zones []ZoneRecord) bool {
	for i := 1; i < len(zones); i++ {
		if zones[i].KeyHigh < zones[i-1].KeyHigh {
			return false
		}
	}
	return true
}

func renderZones(zones []ZoneRecord) []byte {
	var buf bytes.Buffer
	bw := byteio.NewWriter(&buf)
	for _, z := range zones {
		rootByte := byte(z.RootNote & 0x7F)
		if z.KeyTrack {
			rootByte |= 0x80
		}
		bw.U8(rootByte)
		bw.U8(byte(z.KeyHigh))
		bw.U8(byte(int8(z.FineTuneCts)))
		bw.U8(byte(z.GainRaw))
		bw.Bytes([]byte(padTo(z.SampleName, 12)))
		bw.Bytes([]byte{0, 0})
	}
	return buf.Bytes()
}

func padTo(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat("\x00", n-len(s))
}

// KSFHeader carries the KSF-specific attributes not present in the
// canonical model (spec §4.6: "+12 dB boost, reverse flag, compression
// flag live in an attribute byte").
type KSFHeader struct {
	SampleRate int
	Boost12dB  bool
	Reversed   bool
	Compressed bool
}

// ParseKSF parses a KSF wave file: big-endian 16-bit PCM, with SMP1/SMP2
// header chunks and an SNO1 sample-number chunk.
func ParseKSF(data []byte) (KSFHeader, []byte, error) {
	br := byteio.NewReader(bytes.NewReader(data), "ksf")
	br.BigEndian = true
	magic, err := br.FourCC()
	if err != nil {
		return KSFHeader{}, nil, err
	}
	if magic != "SMP1" {
		return KSFHeader{}, nil, cwmerr.New(cwmerr.KindBadMagic, "IDS_KORG_KSF_BADMAGIC", "ksf", nil)
	}
	size, err := br.U32()
	if err != nil {
		return KSFHeader{}, nil, err
	}
	hdr, err := br.Bytes(int(size))
	if err != nil {
		return KSFHeader{}, nil, err
	}
	var header KSFHeader
	if len(hdr) >= 8 {
		hbr := byteio.NewReader(bytes.NewReader(hdr), "ksf-hdr")
		hbr.BigEndian = true
		rate, _ := hbr.U32()
		header.SampleRate = int(rate)
		attr, _ := hbr.U8()
		header.Boost12dB = attr&0x01 != 0
		header.Reversed = attr&0x02 != 0
		header.Compressed = attr&0x04 != 0
		if header.Compressed {
			return header, nil, cwmerr.New(cwmerr.KindFeatureNotSupported, "IDS_KORG_KSF_COMPRESSED", "ksf", nil)
		}
	}

	var pcm []byte
	for {
		id, ferr := br.FourCC()
		if ferr != nil {
			break
		}
		chunkLen, lerr := br.U32()
		if lerr != nil {
			break
		}
		payload, berr := br.Bytes(int(chunkLen))
		if berr != nil {
			break
		}
		if id == "SMD1" {
			pcm = swapBytePairs(payload) // big-endian source -> little-endian WAV PCM
		}
	}
	return header, pcm, nil
}

// EmitKSF serializes a mono 16-bit PCM buffer (little-endian, WAV
// convention) into a KSF byte stream, flipping to Korg's big-endian
// on-disk order.
func EmitKSF(header KSFHeader, pcmLE []byte) []byte {
	var buf bytes.Buffer
	bw := byteio.NewWriter(&buf)
	bw.BigEndian = true

	var hdrBuf bytes.Buffer
	hbw := byteio.NewWriter(&hdrBuf)
	hbw.BigEndian = true
	hbw.U32(uint32(header.SampleRate))
	var attr byte
	if header.Boost12dB {
		attr |= 0x01
	}
	if header.Reversed {
		attr |= 0x02
	}
	hbw.U8(attr)
	hbw.Bytes(make([]byte, 3)) // pad header to the 8-byte minimum ParseKSF expects


	bw.FourCC("SMP1")
	bw.U32(uint32(hdrBuf.Len()))
	bw.Bytes(hdrBuf.Bytes())

	pcmBE := swapBytePairs(pcmLE)
	bw.FourCC("SMD1")
	bw.U32(uint32(len(pcmBE)))
	bw.Bytes(pcmBE)

	return buf.Bytes()
}

func swapBytePairs(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	for i := 0; i+1 < len(out); i += 2 {
		out[i], out[i+1] = out[i+1], out[i]
	}
	return out
}

// UniqueDOSName produces an 8.3-safe, unique-within-used name for a KMP/KSF
// sample filename (spec §4.6: "DOS 8.3 filenames must be unique in the
// output directory; append a numeric tail on collision").
func UniqueDOSName(base string, used map[string]bool) string {
	stem := sanitizeDOS(base)
	if len(stem) > 8 {
		stem = stem[:8]
	}
	candidate := stem
	n := 1
	for used[strings.ToUpper(candidate)] {
		tail := fmt.Sprintf("%d", n)
		keep := 8 - len(tail)
		if keep > len(stem) {
			keep = len(stem)
		}
		candidate = stem[:keep] + tail
		n++
	}
	used[strings.ToUpper(candidate)] = true
	return candidate
}

func sanitizeDOS(s string) string {
	s = strings.ToUpper(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "SAMPLE"
	}
	return b.String()
}

// IsSpecialSampleName reports whether name is one of the recognized
// sentinel sample names (spec §4.6): SKIPPEDSAMPL for an intentionally
// empty zone, or INTERNAL<n> for a workstation-internal waveform with no
// corresponding KSF file.
func IsSpecialSampleName(name string) (skipped bool, internalIndex int, isInternal bool) {
	if name == skippedSampleName {
		return true, 0, false
	}
	if strings.HasPrefix(name, "INTERNAL") {
		var n int
		if _, err := fmt.Sscanf(name, "INTERNAL%d", &n); err == nil {
			return false, n, true
		}
	}
	return false, 0, false
}

// ZonesToModel converts parsed KMP zone records plus resolved sample
// sources into canonical Zones, deriving KeyLow from the previous zone's
// KeyHigh+1 (spec §4.6: zones carry only the upper bound; the workstation
// derives ranges from ascending KeyHigh order).
func ZonesToModel(zones []ZoneRecord, sampleFor func(name string) model.SampleSource) []*model.Zone {
	out := make([]*model.Zone, 0, len(zones))
	lastHigh := -1
	for _, rec := range zones {
		z := model.NewZone(rec.SampleName)
		z.KeyLow = lastHigh + 1
		z.KeyHigh = rec.KeyHigh
		z.KeyRoot = model.Some(rec.RootNote)
		if rec.KeyTrack {
			z.KeyTracking = 1
		} else {
			z.KeyTracking = 0
		}
		z.Tune = float64(rec.FineTuneCts) / 100.0
		z.Gain = GainDB(rec.GainRaw)
		if skipped, _, _ := IsSpecialSampleName(rec.SampleName); !skipped {
			z.Sample = sampleFor(rec.SampleName)
		}
		out = append(out, z)
		lastHigh = rec.KeyHigh
	}
	return out
}

// ModelToZones converts canonical Zones (already ordered) back to KMP zone
// records, computing the gain byte from dB (spec §4.6 "nonlinear mapping").
func ModelToZones(zones []*model.Zone, nameFor func(z *model.Zone) string) []ZoneRecord {
	out := make([]ZoneRecord, 0, len(zones))
	for _, z := range zones {
		out = append(out, ZoneRecord{
			RootNote:    z.ResolvedKeyRoot(),
			KeyTrack:    z.KeyTracking > 0,
			KeyHigh:     z.KeyHigh,
			FineTuneCts: int(z.Tune * 100),
			GainRaw:     gainFromDB(z.Gain),
			SampleName:  nameFor(z),
		})
	}
	return out
}

// WriteKSC writes the library manifest: a fixed header line followed by one
// relative .KMP path per line (spec §4.6).
func WriteKSC(w io.Writer, kmpPaths []string) error {
	if _, err := io.WriteString(w, "# KORG Sample Collection File\r\n"); err != nil {
		return err
	}
	for _, p := range kmpPaths {
		if _, err := io.WriteString(w, p+"\r\n"); err != nil {
			return err
		}
	}
	return nil
}

// ParseKSC reads a .KSC manifest into the list of referenced .KMP paths.
func ParseKSC(data []byte) []string {
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
