package pipeline

import "github.com/git-moss/ConvertWithMoss-sub005/internal/model"

// defaultCrossfadeKeyWidth/defaultCrossfadeVelWidth are the widths this
// port injects at a zone boundary before clamping (spec §4.8 step 3).
// The spec leaves the target width itself as an Open Question; two
// semitones and eight velocity units are narrow enough to stay inaudible
// on a typical multi-octave/full-velocity-range layout while still being
// wide enough to round-trip through the half-span clamp below without
// collapsing to zero on tightly packed zones.
const (
	defaultCrossfadeKeyWidth = 2
	defaultCrossfadeVelWidth = 8
)

// InjectCrossfades sets XFadeLoKey/XFadeHiKey (for zones that share a
// velocity range but tile contiguously across the key range) and
// XFadeLoVel/XFadeHiVel (for zones that share a key range but tile
// contiguously across velocity) on every adjacent zone pair in each
// group, symmetrically on both sides of the boundary. The injected
// width never exceeds half of either neighboring zone's own span, so it
// can never eat into that zone's far boundary with its other neighbor.
func InjectCrossfades(src *model.MultiSampleSource) {
	for _, g := range src.Groups {
		injectKeyCrossfades(g.Zones)
		injectVelCrossfades(g.Zones)
	}
}

func injectKeyCrossfades(zones []*model.Zone) {
	byVel := map[[2]int][]*model.Zone{}
	for _, z := range zones {
		k := [2]int{z.VelLow, z.VelHigh}
		byVel[k] = append(byVel[k], z)
	}
	for _, lane := range byVel {
		sortZonesBy(lane, func(z *model.Zone) int { return z.KeyLow })
		for i := 0; i+1 < len(lane); i++ {
			z, next := lane[i], lane[i+1]
			if next.KeyLow != z.KeyHigh+1 {
				continue // not contiguous; nothing to crossfade
			}
			width := crossfadeWidth(defaultCrossfadeKeyWidth, z.KeyHigh-z.KeyLow+1, next.KeyHigh-next.KeyLow+1)
			z.XFadeHiKey = int64(width)
			next.XFadeLoKey = int64(width)
		}
	}
}

func injectVelCrossfades(zones []*model.Zone) {
	byKey := map[[2]int][]*model.Zone{}
	for _, z := range zones {
		k := [2]int{z.KeyLow, z.KeyHigh}
		byKey[k] = append(byKey[k], z)
	}
	for _, lane := range byKey {
		sortZonesBy(lane, func(z *model.Zone) int { return z.VelLow })
		for i := 0; i+1 < len(lane); i++ {
			z, next := lane[i], lane[i+1]
			if next.VelLow != z.VelHigh+1 {
				continue
			}
			width := crossfadeWidth(defaultCrossfadeVelWidth, z.VelHigh-z.VelLow+1, next.VelHigh-next.VelLow+1)
			z.XFadeHiVel = int64(width)
			next.XFadeLoVel = int64(width)
		}
	}
}

// crossfadeWidth bounds the desired width to half of whichever of the
// two neighboring spans is narrower, so the injected overlap never
// reaches past either zone's own far boundary.
func crossfadeWidth(desired, spanA, spanB int) int {
	limit := spanA / 2
	if spanB/2 < limit {
		limit = spanB / 2
	}
	if desired > limit {
		return limit
	}
	return desired
}

// sortZonesBy insertion-sorts the (always-short) zone lane by key, stable
// across equal keys, without pulling in sort.Slice for a handful of
// elements per group.
func sortZonesBy(zones []*model.Zone, key func(*model.Zone) int) {
	for i := 1; i < len(zones); i++ {
		for j := i; j > 0 && key(zones[j-1]) > key(zones[j]); j-- {
			zones[j-1], zones[j] = zones[j], zones[j-1]
		}
	}
}
