package farm

import (
	"errors"
	"fmt"
)

var ErrInvalidLayout = errors.New("invalid layout")

const BarnSize = 2

type Layout struct {
	Width  int
	Height int

	Parcels []Parcel
	Barns   map[Role]Point
	Manager Point

	// CropCount drives the cycle targets. InitialCrops are scattered over
	// parcel interiors on every reset before planting starts.
	CropCount     int
	InitialCrops  int
	ObstacleCount int

	// Reserved cells never receive obstacles (agent start cells).
	Reserved []Point
	Seed     int64
}

func DefaultLayout() Layout {
	w, h := 60, 40
	return Layout{
		Width:   w,
		Height:  h,
		Parcels: DefaultParcels(),
		Barns: map[Role]Point{
			RolePlanter:   {X: 3, Y: 3},
			RoleHarvester: {X: w - 5, Y: 3},
			RoleIrrigator: {X: 3, Y: h - 5},
		},
		Manager:       Point{X: w - 5, Y: h - 5},
		CropCount:     200,
		InitialCrops:  200,
		ObstacleCount: 30,
	}
}

func (l Layout) InBounds(p Point) bool {
	return p.X >= 0 && p.X < l.Width && p.Y >= 0 && p.Y < l.Height
}

func (l Layout) Validate() error {
	if l.Width < 4 || l.Height < 4 {
		return fmt.Errorf("%w: grid %dx%d is degenerate", ErrInvalidLayout, l.Width, l.Height)
	}
	if len(l.Parcels) == 0 {
		return fmt.Errorf("%w: no parcels", ErrInvalidLayout)
	}
	interior := 0
	for i, p := range l.Parcels {
		if p.XStart < 0 || p.YStart < 0 || p.XEnd > l.Width || p.YEnd > l.Height {
			return fmt.Errorf("%w: parcel %q out of bounds", ErrInvalidLayout, p.Name)
		}
		if p.InteriorArea() == 0 {
			return fmt.Errorf("%w: parcel %q has no interior", ErrInvalidLayout, p.Name)
		}
		for _, o := range l.Parcels[i+1:] {
			if p.Overlaps(o) {
				return fmt.Errorf("%w: parcels %q and %q overlap", ErrInvalidLayout, p.Name, o.Name)
			}
		}
		interior += p.InteriorArea()
	}
	for _, role := range AllRoles() {
		pos, ok := l.Barns[role]
		if !ok {
			return fmt.Errorf("%w: no barn for %s", ErrInvalidLayout, role)
		}
		if err := l.validateBarn(string(role), pos); err != nil {
			return err
		}
	}
	if err := l.validateBarn("manager", l.Manager); err != nil {
		return err
	}
	if err := l.validateBarnSpacing(); err != nil {
		return err
	}
	if l.CropCount < 1 {
		return fmt.Errorf("%w: crop count must be positive", ErrInvalidLayout)
	}
	if l.InitialCrops < 0 || l.ObstacleCount < 0 {
		return fmt.Errorf("%w: negative crop or obstacle count", ErrInvalidLayout)
	}
	if l.CropCount+l.InitialCrops > interior {
		return fmt.Errorf("%w: %d crops do not fit %d interior cells", ErrInvalidLayout, l.CropCount+l.InitialCrops, interior)
	}
	return nil
}

func (l Layout) validateBarn(name string, pos Point) error {
	if !l.InBounds(pos) || !l.InBounds(pos.Add(BarnSize-1, BarnSize-1)) {
		return fmt.Errorf("%w: %s barn at (%d,%d) out of bounds", ErrInvalidLayout, name, pos.X, pos.Y)
	}
	for _, p := range l.Parcels {
		for dx := 0; dx < BarnSize; dx++ {
			for dy := 0; dy < BarnSize; dy++ {
				if p.Contains(pos.Add(dx, dy)) {
					return fmt.Errorf("%w: %s barn overlaps parcel %q", ErrInvalidLayout, name, p.Name)
				}
			}
		}
	}
	return nil
}

// validateBarnSpacing rejects barn blocks (the manager included) that share
// a cell.
func (l Layout) validateBarnSpacing() error {
	type block struct {
		name string
		pos  Point
	}
	blocks := make([]block, 0, len(AllRoles())+1)
	for _, role := range AllRoles() {
		blocks = append(blocks, block{string(role), l.Barns[role]})
	}
	blocks = append(blocks, block{"manager", l.Manager})
	for i, a := range blocks {
		for _, b := range blocks[i+1:] {
			if abs(a.pos.X-b.pos.X) < BarnSize && abs(a.pos.Y-b.pos.Y) < BarnSize {
				return fmt.Errorf("%w: %s and %s barns overlap", ErrInvalidLayout, a.name, b.name)
			}
		}
	}
	return nil
}
