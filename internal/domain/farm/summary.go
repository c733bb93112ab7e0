package farm

type ParcelBounds struct {
	XStart int `json:"x_start"`
	XEnd   int `json:"x_end"`
	YStart int `json:"y_start"`
	YEnd   int `json:"y_end"`
}

type ParcelSummary struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Bounds       ParcelBounds `json:"bounds"`
	Area         int          `json:"area"`
	CropsCurrent int          `json:"crops_current"`
}

func (w *World) ParcelSummaries() []ParcelSummary {
	out := make([]ParcelSummary, 0, len(w.layout.Parcels))
	for i, p := range w.layout.Parcels {
		crops := 0
		for y := p.YStart; y < p.YEnd; y++ {
			for x := p.XStart; x < p.XEnd; x++ {
				if w.At(Point{X: x, Y: y}) == CellCrop {
					crops++
				}
			}
		}
		out = append(out, ParcelSummary{
			ID:           i,
			Name:         p.Name,
			Bounds:       ParcelBounds{XStart: p.XStart, XEnd: p.XEnd, YStart: p.YStart, YEnd: p.YEnd},
			Area:         p.Area(),
			CropsCurrent: crops,
		})
	}
	return out
}
