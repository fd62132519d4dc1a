// Package notekit converts between MIDI note numbers and note names,
// flat-aware. Grounded on the teacher's internal/music/music.go
// (MidiToNoteName), extended here with the inverse parse the spec's SFZ
// (§4.5, `pitch_keycenter`) and MPC (§8 scenario S6) codecs need: note
// names may use either sharps or flats ("Eb2", "D#2"), and scenario S6
// specifically requires this parser to land on MIDI 39 for "Eb2" — not 59,
// the documented regression from an earlier, buggy parser that matched the
// trailing "B2" as if it were the note "B" octave "2".
package notekit

import (
	"fmt"
	"strconv"
	"strings"
)

var sharpNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
var flatNames = []string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

var nameToSemitone = map[string]int{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3, "E": 4, "Fb": 4,
	"F": 5, "F#": 6, "Gb": 6, "G": 7, "G#": 8, "Ab": 8, "A": 9, "A#": 10,
	"Bb": 10, "B": 11, "Cb": 11,
}

// MIDIToName renders a MIDI note number (0..127) as "C4"-style text,
// middle C (60) = C4, using sharps.
func MIDIToName(note int) string {
	if note < 0 || note > 127 {
		return ""
	}
	octave := note/12 - 1
	return fmt.Sprintf("%s%d", sharpNames[note%12], octave)
}

// ParseNoteName parses a note name like "C4", "Eb2", "F#-1", or a bare
// integer string, returning the MIDI note number. The parse is anchored on
// the *longest* valid pitch-class prefix (2 characters before falling back
// to 1) so that "Eb2" is read as pitch-class "Eb" + octave "2" (MIDI 39),
// never as pitch-class "B" matched against a trailing substring (the
// regression spec §8 scenario S6 calls out).
func ParseNoteName(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 0 && n <= 127 {
			return n, true
		}
		return 0, false
	}
	// Longest-prefix match: try a 2-character pitch class (e.g. "Eb", "C#")
	// before a 1-character one ("C"), so we never misparse the accidental.
	for _, plen := range []int{2, 1} {
		if len(s) <= plen {
			continue
		}
		prefix := capitalizeNote(s[:plen])
		semitone, ok := nameToSemitone[prefix]
		if !ok {
			continue
		}
		octaveStr := s[plen:]
		octave, err := strconv.Atoi(octaveStr)
		if err != nil {
			continue
		}
		note := (octave+1)*12 + semitone
		if note < 0 || note > 127 {
			return 0, false
		}
		return note, true
	}
	return 0, false
}

func capitalizeNote(s string) string {
	if len(s) == 0 {
		return s
	}
	out := strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	return out
}

// NameWithFlats renders using flat spellings, matching how several of the
// supported formats (DecentSampler, SFZ) prefer to write accidentals.
func NameWithFlats(note int) string {
	if note < 0 || note > 127 {
		return ""
	}
	octave := note/12 - 1
	return fmt.Sprintf("%s%d", flatNames[note%12], octave)
}
