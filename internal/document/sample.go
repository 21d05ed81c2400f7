package document

// NewSampleSketch builds a small sketch that uses every entity kind. It is
// served to the playground and used by tests.
func NewSampleSketch() *Sketch {
	s := NewSketch()
	m := DrawModeModeling

	a := s.NewPoint(200, 700, m)
	b := s.NewPoint(700, 700, m)
	c := s.NewPoint(200, 250, m)
	d := s.NewPoint(550, 300, m)
	e := s.NewPoint(750, 450, m)
	axisTop := s.NewPoint(800, 100, DrawModeCalculation)
	axisBottom := s.NewPoint(800, 900, DrawModeCalculation)

	base, _ := s.NewLine(a, b, m)
	side, _ := s.NewLine(a, c, m)
	curve, _ := s.NewSpline(c, d, e, b, m)
	bis, _ := s.NewBisector(b, a, c, 180, m)
	s.NewArc(a, 120, 0, -90, m)
	s.NewAlongLine(a, b, 250, DrawModeCalculation)

	s.NewContour([]EntityRef{
		Ref(KindLine, base),
		Ref(KindSpline, curve),
		Ref(KindLine, side),
	}, m)
	s.NewMirror([]EntityRef{
		Ref(KindLine, side),
		Ref(KindBisector, bis),
	}, axisTop, axisBottom, m)

	return s
}
