// Package stepper drives a 4-wire unipolar or bipolar stepper through four
// GPIO coil lines using the full-step sequence.
package stepper

// Pin is one coil line.
type Pin interface {
	Set(high bool)
}

// fullStep energises two coils at a time; rows are coil levels for
// lines 1..4.
var fullStep = [4][4]bool{
	{true, false, true, false},
	{false, true, true, false},
	{false, true, false, true},
	{true, false, false, true},
}

type Device struct {
	pins  [4]Pin
	phase int
	on    bool
}

// New returns a device at phase 0 with the coils off.
func New(p1, p2, p3, p4 Pin) *Device {
	d := &Device{pins: [4]Pin{p1, p2, p3, p4}}
	d.Off()
	return d
}

// Step advances the sequence one phase in dir (+1 or -1) and drives the
// coils. Any other dir is ignored.
func (d *Device) Step(dir int8) {
	switch dir {
	case 1:
		d.phase = (d.phase + 1) & 3
	case -1:
		d.phase = (d.phase + 3) & 3
	default:
		return
	}
	d.apply()
}

// Off de-energises every coil. The phase is kept so the next step
// continues the sequence.
func (d *Device) Off() {
	for _, p := range d.pins {
		p.Set(false)
	}
	d.on = false
}

// Hold energises the coils for the current phase.
func (d *Device) Hold() { d.apply() }

func (d *Device) Phase() int      { return d.phase }
func (d *Device) Energised() bool { return d.on }

func (d *Device) apply() {
	row := fullStep[d.phase]
	for i, p := range d.pins {
		p.Set(row[i])
	}
	d.on = true
}
