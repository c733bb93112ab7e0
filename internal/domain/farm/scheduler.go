package farm

const irrigationSaturation = 2

// SmartGoal returns the nearest work item for the role in the current phase,
// or the role's barn when the role is idle in this phase or nothing is left.
func (w *World) SmartGoal(pos Point, role Role) Point {
	active, ok := w.phase.ActiveRole()
	if !ok || active != role {
		return w.BarnFor(role)
	}

	best, found := Point{}, false
	bestDist, bestPriority := 0, 0
	consider := func(p Point, priority int) {
		d := Manhattan(pos, p)
		if !found || d < bestDist || (d == bestDist && priority > bestPriority) {
			best, bestDist, bestPriority, found = p, d, priority, true
		}
	}

	switch role {
	case RolePlanter:
		for _, parcel := range w.layout.Parcels {
			for y := parcel.YStart + 1; y < parcel.YEnd-1; y++ {
				for x := parcel.XStart + 1; x < parcel.XEnd-1; x++ {
					p := Point{X: x, Y: y}
					if w.At(p) == CellEmpty {
						consider(p, 0)
					}
				}
			}
		}
	case RoleIrrigator:
		w.eachCrop(func(p Point, water int) {
			if water < irrigationSaturation {
				consider(p, irrigationSaturation+1-water)
			}
		})
	case RoleHarvester:
		w.eachCrop(func(p Point, water int) {
			if water >= 1 {
				consider(p, 0)
			}
		})
	}

	if !found {
		return w.BarnFor(role)
	}
	return best
}

func (w *World) eachCrop(fn func(p Point, water int)) {
	for y := 0; y < w.layout.Height; y++ {
		for x := 0; x < w.layout.Width; x++ {
			i := y*w.layout.Width + x
			if w.cells[i] == CellCrop {
				fn(Point{X: x, Y: y}, w.water[i])
			}
		}
	}
}
