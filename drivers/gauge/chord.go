package gauge

// Chord watches two discrete inputs and fires once each time both become
// pressed together. Holding them does not fire again until one is released.
type Chord struct {
	a, b func() bool
	held bool
}

func NewChord(a, b func() bool) *Chord {
	return &Chord{a: a, b: b}
}

// Fired samples both inputs and reports a rising edge of "both pressed".
func (c *Chord) Fired() bool {
	both := c.a() && c.b()
	fire := both && !c.held
	c.held = both
	return fire
}
