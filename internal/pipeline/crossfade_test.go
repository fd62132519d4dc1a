package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
)

func TestInjectCrossfadesSetsSymmetricKeyBoundary(t *testing.T) {
	src := model.NewMultiSampleSource("Piano")
	g := model.NewGroup("Main")
	low := model.NewZone("low")
	low.KeyLow, low.KeyHigh = 0, 59
	high := model.NewZone("high")
	high.KeyLow, high.KeyHigh = 60, 127
	g.Zones = []*model.Zone{low, high}
	src.Groups = append(src.Groups, g)

	InjectCrossfades(src)

	assert.EqualValues(t, defaultCrossfadeKeyWidth, low.XFadeHiKey)
	assert.EqualValues(t, defaultCrossfadeKeyWidth, high.XFadeLoKey)
	assert.Zero(t, low.XFadeLoKey)
	assert.Zero(t, high.XFadeHiKey)
}

func TestInjectCrossfadesSetsSymmetricVelocityBoundary(t *testing.T) {
	src := model.NewMultiSampleSource("Drum")
	g := model.NewGroup("Main")
	soft := model.NewZone("soft")
	soft.VelLow, soft.VelHigh = 0, 63
	loud := model.NewZone("loud")
	loud.VelLow, loud.VelHigh = 64, 127
	g.Zones = []*model.Zone{soft, loud}
	src.Groups = append(src.Groups, g)

	InjectCrossfades(src)

	assert.EqualValues(t, defaultCrossfadeVelWidth, soft.XFadeHiVel)
	assert.EqualValues(t, defaultCrossfadeVelWidth, loud.XFadeLoVel)
}

func TestInjectCrossfadesClampsToHalfOfNarrowerNeighbor(t *testing.T) {
	src := model.NewMultiSampleSource("Tight")
	g := model.NewGroup("Main")
	left := model.NewZone("left")
	left.KeyLow, left.KeyHigh = 0, 59
	right := model.NewZone("right")
	right.KeyLow, right.KeyHigh = 60, 62 // a 3-key-wide sliver
	g.Zones = []*model.Zone{left, right}
	src.Groups = append(src.Groups, g)

	InjectCrossfades(src)

	// right's own span is 3 keys; half of that (1) is narrower than the
	// 2-key default, so the clamp must win on both sides of the boundary.
	assert.EqualValues(t, 1, left.XFadeHiKey)
	assert.EqualValues(t, 1, right.XFadeLoKey)
}

func TestInjectCrossfadesSkipsNonContiguousZones(t *testing.T) {
	src := model.NewMultiSampleSource("Gapped")
	g := model.NewGroup("Main")
	left := model.NewZone("left")
	left.KeyLow, left.KeyHigh = 0, 50
	right := model.NewZone("right")
	right.KeyLow, right.KeyHigh = 60, 127 // gap between 51 and 59
	g.Zones = []*model.Zone{left, right}
	src.Groups = append(src.Groups, g)

	InjectCrossfades(src)

	assert.Zero(t, left.XFadeHiKey)
	assert.Zero(t, right.XFadeLoKey)
}
