package farm

import (
	"sort"

	"github.com/ojrac/opensimplex-go"
)

const (
	obstacleNoiseFrequency = 0.15
	obstacleJitter         = 0.1
	barnClearance          = 2
)

// placeObstacles picks the highest scoring free cells outside the parcels.
// Scores come from a simplex field so rocks and trees cluster instead of
// spreading as white noise.
func (w *World) placeObstacles() PointSet {
	out := NewPointSet()
	if w.layout.ObstacleCount == 0 {
		return out
	}
	reserved := NewPointSet(w.layout.Reserved...)
	noise := opensimplex.NewNormalized(w.rng.Int63())

	type candidate struct {
		p     Point
		score float64
	}
	cands := make([]candidate, 0, w.layout.Width*w.layout.Height/2)
	for y := 1; y < w.layout.Height-1; y++ {
		for x := 1; x < w.layout.Width-1; x++ {
			p := Point{X: x, Y: y}
			if w.At(p) != CellEmpty || w.InsideParcel(p) || reserved.Has(p) || w.nearBarn(p) {
				continue
			}
			score := noise.Eval2(float64(x)*obstacleNoiseFrequency, float64(y)*obstacleNoiseFrequency)
			score += w.rng.Float64() * obstacleJitter
			cands = append(cands, candidate{p: p, score: score})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	for _, c := range cands {
		if len(out) >= w.layout.ObstacleCount {
			break
		}
		w.set(c.p, CellObstacle)
		out.Add(c.p)
	}
	return out
}

func (w *World) nearBarn(p Point) bool {
	check := func(pos Point) bool {
		return abs(p.X-pos.X) <= barnClearance && abs(p.Y-pos.Y) <= barnClearance
	}
	for _, pos := range w.layout.Barns {
		if check(pos) {
			return true
		}
	}
	return check(w.layout.Manager)
}
