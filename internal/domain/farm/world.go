package farm

import (
	"math/rand"
	"time"
)

type Counters struct {
	Planted   int `json:"planted"`
	Irrigated int `json:"irrigated"`
	Harvested int `json:"harvested"`
}

type Targets struct {
	Planted   int `json:"planting"`
	Irrigated int `json:"irrigating"`
	Harvested int `json:"harvesting"`
}

func TargetsFor(cropCount int) Targets {
	return Targets{Planted: cropCount, Irrigated: 2 * cropCount, Harvested: cropCount}
}

// World exclusively owns cell kinds, water, compaction and the cycle
// counters. It is not safe for concurrent use; the simulation engine
// serialises access.
type World struct {
	layout     Layout
	cells      []CellKind
	water      []int
	compaction []int
	obstacles  PointSet

	counters Counters
	targets  Targets
	phase    Phase
	step     int

	rng *rand.Rand
}

func NewWorld(layout Layout) (*World, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	seed := layout.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	n := layout.Width * layout.Height
	w := &World{
		layout:     layout,
		cells:      make([]CellKind, n),
		water:      make([]int, n),
		compaction: make([]int, n),
		targets:    TargetsFor(layout.CropCount),
		rng:        rand.New(rand.NewSource(seed)),
	}
	w.Reset()
	return w, nil
}

// Reset rebuilds the map and zeroes counters. Crops and obstacles are
// re-scattered from the world's random stream, so consecutive episodes see
// different fields.
func (w *World) Reset() {
	for i := range w.cells {
		w.cells[i] = CellEmpty
		w.water[i] = 0
		w.compaction[i] = 0
	}
	w.markParcelBorders()
	for _, role := range AllRoles() {
		w.placeBarn(w.layout.Barns[role], role.BarnKind())
	}
	w.placeBarn(w.layout.Manager, CellManager)
	w.scatterCrops()
	w.obstacles = w.placeObstacles()

	w.counters = Counters{}
	w.phase = PhasePlanting
	w.step = 0
}

func (w *World) Width() int     { return w.layout.Width }
func (w *World) Height() int    { return w.layout.Height }
func (w *World) Layout() Layout { return w.layout }

func (w *World) InBounds(p Point) bool {
	return w.layout.InBounds(p)
}

func (w *World) index(p Point) int {
	return p.Y*w.layout.Width + p.X
}

// At reports out-of-bounds cells as obstacles.
func (w *World) At(p Point) CellKind {
	if !w.InBounds(p) {
		return CellObstacle
	}
	return w.cells[w.index(p)]
}

func (w *World) set(p Point, k CellKind) {
	if w.InBounds(p) {
		w.cells[w.index(p)] = k
	}
}

func (w *World) WaterAt(p Point) int {
	if !w.InBounds(p) {
		return 0
	}
	return w.water[w.index(p)]
}

func (w *World) CompactionAt(p Point) int {
	if !w.InBounds(p) {
		return 0
	}
	return w.compaction[w.index(p)]
}

// Obstacles returns the static obstacle set of the current episode. Callers
// must clone it before adding dynamic blockers.
func (w *World) Obstacles() PointSet {
	return w.obstacles
}

func (w *World) IsObstacle(p Point) bool {
	return !w.InBounds(p) || w.obstacles.Has(p)
}

func (w *World) InsideParcel(p Point) bool {
	for _, parcel := range w.layout.Parcels {
		if parcel.Contains(p) {
			return true
		}
	}
	return false
}

func (w *World) InsideParcelInterior(p Point) bool {
	for _, parcel := range w.layout.Parcels {
		if parcel.InteriorContains(p) {
			return true
		}
	}
	return false
}

func (w *World) BarnFor(role Role) Point {
	if pos, ok := w.layout.Barns[role]; ok {
		return pos
	}
	return w.layout.Manager
}

func (w *World) Counters() Counters { return w.counters }
func (w *World) Targets() Targets   { return w.targets }
func (w *World) Phase() Phase       { return w.phase }
func (w *World) Step() int          { return w.step }

// Tick advances the step counter and returns the new value.
func (w *World) Tick() int {
	w.step++
	return w.step
}

func (w *World) CanPlant(p Point) bool {
	return w.At(p) == CellEmpty && w.InsideParcelInterior(p)
}

func (w *World) Plant(p Point) bool {
	if !w.CanPlant(p) {
		return false
	}
	w.set(p, CellCrop)
	w.counters.Planted++
	return true
}

func (w *World) Irrigate(p Point) bool {
	if w.At(p) != CellCrop {
		return false
	}
	w.water[w.index(p)]++
	w.counters.Irrigated++
	return true
}

// Harvest turns a watered crop into a path cell and returns the water level
// the crop had.
func (w *World) Harvest(p Point) (int, bool) {
	if w.At(p) != CellCrop {
		return 0, false
	}
	water := w.water[w.index(p)]
	if water < 1 {
		return water, false
	}
	w.set(p, CellPath)
	w.counters.Harvested++
	return water, true
}

func (w *World) TaskComplete() bool {
	return w.counters.Planted >= w.targets.Planted &&
		w.counters.Irrigated >= w.targets.Irrigated &&
		w.counters.Harvested >= w.targets.Harvested
}

func (w *World) CountKind(k CellKind) int {
	n := 0
	for _, c := range w.cells {
		if c == k {
			n++
		}
	}
	return n
}

// Grid copies the cells as wire codes indexed [y][x].
func (w *World) Grid() [][]int {
	out := make([][]int, w.layout.Height)
	for y := 0; y < w.layout.Height; y++ {
		row := make([]int, w.layout.Width)
		for x := 0; x < w.layout.Width; x++ {
			row[x] = int(w.cells[y*w.layout.Width+x])
		}
		out[y] = row
	}
	return out
}

func (w *World) markParcelBorders() {
	for _, parcel := range w.layout.Parcels {
		for x := parcel.XStart; x < parcel.XEnd; x++ {
			w.set(Point{X: x, Y: parcel.YStart}, CellParcelBorder)
			w.set(Point{X: x, Y: parcel.YEnd - 1}, CellParcelBorder)
		}
		for y := parcel.YStart; y < parcel.YEnd; y++ {
			w.set(Point{X: parcel.XStart, Y: y}, CellParcelBorder)
			w.set(Point{X: parcel.XEnd - 1, Y: y}, CellParcelBorder)
		}
	}
}

func (w *World) placeBarn(pos Point, kind CellKind) {
	for dx := 0; dx < BarnSize; dx++ {
		for dy := 0; dy < BarnSize; dy++ {
			w.set(pos.Add(dx, dy), kind)
		}
	}
}

func (w *World) scatterCrops() {
	want := w.layout.InitialCrops
	parcels := w.layout.Parcels
	placed, attempts := 0, 0
	for placed < want && attempts < want*20 {
		attempts++
		p := parcels[w.rng.Intn(len(parcels))]
		pt := Point{
			X: p.XStart + 1 + w.rng.Intn(p.XEnd-p.XStart-2),
			Y: p.YStart + 1 + w.rng.Intn(p.YEnd-p.YStart-2),
		}
		if w.At(pt) == CellEmpty {
			w.set(pt, CellCrop)
			placed++
		}
	}
}
