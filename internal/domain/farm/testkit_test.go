package farm

import "testing"

// smallLayout is a 12x10 field with one 5x6 parcel (interior x 5..7, y 3..6).
func smallLayout() Layout {
	return Layout{
		Width:  12,
		Height: 10,
		Parcels: []Parcel{
			{Name: "test", XStart: 4, XEnd: 9, YStart: 2, YEnd: 8},
		},
		Barns: map[Role]Point{
			RolePlanter:   {X: 0, Y: 0},
			RoleHarvester: {X: 10, Y: 0},
			RoleIrrigator: {X: 0, Y: 8},
		},
		Manager:   Point{X: 10, Y: 8},
		CropCount: 1,
		Seed:      7,
	}
}

func mustWorld(t *testing.T, l Layout) *World {
	t.Helper()
	w, err := NewWorld(l)
	if err != nil {
		t.Fatalf("NewWorld error: %v", err)
	}
	return w
}
