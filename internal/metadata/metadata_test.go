package metadata

import (
	"testing"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestDetectCategoryFromFolder(t *testing.T) {
	meta := Detect([]string{"Vendor Samples", "Grand Piano Collection", "Piano_Mellow.wav"}, nil)
	assert.Equal(t, model.CategoryPiano, meta.Category)
	assert.Equal(t, "Vendor Samples", meta.Creator)
}

func TestDetectCategoryUnknownWhenNoSynonymMatches(t *testing.T) {
	meta := Detect([]string{"Miscellaneous Stuff"}, nil)
	assert.Equal(t, model.CategoryUnknown, meta.Category)
}

func TestDetectKeywordsExcludeNoteAndVelocityTokens(t *testing.T) {
	meta := Detect([]string{"Vintage Analog Bass C2 v64"}, nil)
	_, hasC2 := meta.Keywords["c2"]
	_, hasV64 := meta.Keywords["v64"]
	assert.False(t, hasC2)
	assert.False(t, hasV64)
	_, hasVintage := meta.Keywords["vintage"]
	assert.True(t, hasVintage)
}

func TestDisplayNameStripsTrailingNoteAndVelocity(t *testing.T) {
	assert.Equal(t, "Piano", DisplayName("Piano_C3_v64.wav"))
	assert.Equal(t, "Warm Pad", DisplayName("Warm-Pad-Eb2-rr1.wav"))
}

func TestDisplayNameKeepsNonNoteSuffix(t *testing.T) {
	assert.Equal(t, "Lead One", DisplayName("Lead One.wav"))
}

func TestGuessCreatorSkipsGenericFolders(t *testing.T) {
	meta := Detect([]string{"Samples", "Acme Audio", "Kick.wav"}, nil)
	assert.Equal(t, "Acme Audio", meta.Creator)
}
