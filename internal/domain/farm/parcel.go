package farm

// Parcel covers [XStart, XEnd) x [YStart, YEnd). Its perimeter is border, the
// rest is plantable interior.
type Parcel struct {
	Name   string `json:"name" yaml:"name"`
	XStart int    `json:"x_start" yaml:"x_start"`
	XEnd   int    `json:"x_end" yaml:"x_end"`
	YStart int    `json:"y_start" yaml:"y_start"`
	YEnd   int    `json:"y_end" yaml:"y_end"`
}

func (p Parcel) Contains(pt Point) bool {
	return pt.X >= p.XStart && pt.X < p.XEnd && pt.Y >= p.YStart && pt.Y < p.YEnd
}

func (p Parcel) InteriorContains(pt Point) bool {
	return pt.X >= p.XStart+1 && pt.X < p.XEnd-1 && pt.Y >= p.YStart+1 && pt.Y < p.YEnd-1
}

func (p Parcel) OnBorder(pt Point) bool {
	return p.Contains(pt) && !p.InteriorContains(pt)
}

func (p Parcel) Area() int {
	return (p.XEnd - p.XStart) * (p.YEnd - p.YStart)
}

func (p Parcel) InteriorArea() int {
	w := p.XEnd - p.XStart - 2
	h := p.YEnd - p.YStart - 2
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

func (p Parcel) Overlaps(o Parcel) bool {
	return p.XStart < o.XEnd && o.XStart < p.XEnd && p.YStart < o.YEnd && o.YStart < p.YEnd
}

func DefaultParcels() []Parcel {
	return []Parcel{
		{Name: "Parcel 1", XStart: 8, XEnd: 28, YStart: 8, YEnd: 32},
		{Name: "Parcel 2", XStart: 32, XEnd: 52, YStart: 8, YEnd: 32},
	}
}
