package gauge

import (
	"fmt"
	"time"

	"cockpit-go/errcode"
	"cockpit-go/types"
	"cockpit-go/x/mathx"
)

const (
	DefaultCap   = 65535
	DefaultSpeed = 300 // steps/s
	DefaultAccel = 600 // steps/s²

	DefaultCalSpeed = 20
	DefaultCalAccel = 10
	DefaultDwell    = 2 * time.Second
)

// Point pairs a raw input value with a step position.
type Point struct {
	Value    uint16
	Position int32
}

// Config is fixed at construction. Positions are steps from the low
// mechanical stop, which is position 0 once homed.
type Config struct {
	Name      string
	DialZero  int32
	MaxPos    int32
	Direction int8 // +1 or -1; multiplies every physical step
	Cap       uint16
	Speed     float64
	Accel     float64
	Map       []Point // optional; ascending by Value, at least 2 points

	// Calibration profile; zero means the default.
	CalSpeed float64
	CalAccel float64
	Dwell    time.Duration
}

// FromTypes converts a wire gauge config. Unset speed, accel and cap take
// the defaults and a zero direction means +1.
func FromTypes(c types.GaugeConfig) Config {
	cfg := Config{
		Name:      c.Name,
		DialZero:  c.DialZero,
		MaxPos:    c.MaxPos,
		Direction: c.Direction,
		Cap:       c.Cap,
		Speed:     c.Speed,
		Accel:     c.Accel,
	}
	if cfg.Direction == 0 {
		cfg.Direction = 1
	}
	if cfg.Cap == 0 && len(c.Map) == 0 {
		cfg.Cap = DefaultCap
	}
	if cfg.Speed == 0 {
		cfg.Speed = DefaultSpeed
	}
	if cfg.Accel == 0 {
		cfg.Accel = DefaultAccel
	}
	for _, p := range c.Map {
		cfg.Map = append(cfg.Map, Point{Value: p.Value, Position: p.Position})
	}
	if cfg.Cap == 0 && len(cfg.Map) > 0 {
		cfg.Cap = cfg.Map[len(cfg.Map)-1].Value
	}
	return cfg
}

func (c Config) Validate() error {
	bad := func(msg string) error {
		return fmt.Errorf("gauge %q: %w", c.Name, errcode.New(errcode.InvalidConfig, "gauge.Config", msg))
	}
	switch {
	case c.Cap == 0:
		return bad("cap must be > 0")
	case c.DialZero < 0:
		return bad("dial zero must be >= 0")
	case c.MaxPos <= c.DialZero:
		return bad("max position must exceed dial zero")
	case c.Direction != 1 && c.Direction != -1:
		return bad("direction must be +1 or -1")
	case !(c.Speed > 0) || !(c.Accel > 0):
		return bad("speed and accel must be > 0")
	case c.CalSpeed < 0 || c.CalAccel < 0 || c.Dwell < 0:
		return bad("calibration profile must not be negative")
	case len(c.Map) == 1:
		return bad("mapping table needs at least 2 points")
	}
	for i, p := range c.Map {
		if i > 0 && p.Value < c.Map[i-1].Value {
			return bad(fmt.Sprintf("mapping table not ascending at index %d", i))
		}
		if p.Position < 0 || p.Position > c.MaxPos {
			return bad(fmt.Sprintf("mapping position %d outside 0..%d", p.Position, c.MaxPos))
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.CalSpeed == 0 {
		c.CalSpeed = DefaultCalSpeed
	}
	if c.CalAccel == 0 {
		c.CalAccel = DefaultCalAccel
	}
	if c.Dwell == 0 {
		c.Dwell = DefaultDwell
	}
	return c
}

// position maps a raw value to an absolute step position.
func (c Config) position(raw uint16, pts []mathx.Point) int32 {
	x := int64(min(raw, c.Cap))
	if len(pts) > 0 {
		return int32(mathx.Interp(x, pts))
	}
	return int32(mathx.Map(x, 0, int64(c.Cap), int64(c.DialZero), int64(c.MaxPos)))
}

func (c Config) knots() []mathx.Point {
	if len(c.Map) == 0 {
		return nil
	}
	pts := make([]mathx.Point, len(c.Map))
	for i, p := range c.Map {
		pts[i] = mathx.Point{X: int64(p.Value), Y: int64(p.Position)}
	}
	return pts
}
