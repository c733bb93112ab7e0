package farm

type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

func Manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Neighbors4 is the expansion order used by both the pathfinder and the
// occupancy mask: +y, -y, -x, +x.
var Neighbors4 = [4]Point{{X: 0, Y: 1}, {X: 0, Y: -1}, {X: -1, Y: 0}, {X: 1, Y: 0}}

type PointSet map[Point]struct{}

func NewPointSet(points ...Point) PointSet {
	s := make(PointSet, len(points))
	for _, p := range points {
		s[p] = struct{}{}
	}
	return s
}

func (s PointSet) Has(p Point) bool {
	_, ok := s[p]
	return ok
}

func (s PointSet) Add(p Point) {
	s[p] = struct{}{}
}

func (s PointSet) Clone() PointSet {
	out := make(PointSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
