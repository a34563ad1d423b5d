// Package gauge drives one stepper-motor instrument needle: it maps raw
// telemetry values to step positions, homes against the mechanical stop
// and moves toward the target one step at a time.
//
// Advance is non-blocking and meant to be called every loop cycle.
// FindZero, TestFullRange and Recalibrate block on the injected clock and
// own the actuator while they run.
package gauge

import (
	"errors"
	"fmt"
	"sync"

	"cockpit-go/errcode"
	"cockpit-go/x/mathx"
	"cockpit-go/x/timex"
)

// Actuator issues single physical steps. dir is +1 or -1.
type Actuator interface {
	Step(dir int8)
}

type Gauge struct {
	cfg   Config
	pts   []mathx.Point
	act   Actuator
	clock timex.Clock

	mu        sync.Mutex
	pos       int32 // mechanical coordinates
	target    int32
	commanded int32 // last telemetry-derived target
	pending   bool  // a target arrived during a sequence
	homing    bool
	testing   bool
	homed     bool
	mv        motion
	chord     *Chord
	steps     uint64
}

func New(cfg Config, act Actuator, clock timex.Clock) (*Gauge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if act == nil {
		return nil, fmt.Errorf("gauge %q: %w", cfg.Name, errcode.New(errcode.InvalidConfig, "gauge.New", "nil actuator"))
	}
	if clock == nil {
		return nil, errors.New("gauge: nil clock")
	}
	cfg = cfg.withDefaults()
	return &Gauge{
		cfg:       cfg,
		pts:       cfg.knots(),
		act:       act,
		clock:     clock,
		pos:       cfg.DialZero,
		target:    cfg.DialZero,
		commanded: cfg.DialZero,
	}, nil
}

func (g *Gauge) Name() string   { return g.cfg.Name }
func (g *Gauge) Config() Config { return g.cfg }

// PositionFor returns the step position raw maps to.
func (g *Gauge) PositionFor(raw uint16) int32 { return g.cfg.position(raw, g.pts) }

// SetTarget maps raw to a step position and makes it the motion target.
// During a calibration sequence the value is held and applied when the
// sequence ends.
func (g *Gauge) SetTarget(raw uint16) {
	p := g.PositionFor(raw)
	g.mu.Lock()
	g.commanded = p
	if g.homing || g.testing {
		g.pending = true
	} else {
		g.target = p
	}
	g.mu.Unlock()
}

// SetChord attaches the manual re-homing trigger checked by Advance.
func (g *Gauge) SetChord(c *Chord) {
	g.mu.Lock()
	g.chord = c
	g.mu.Unlock()
}

// Advance takes at most one step toward the target if one is due and
// reports whether the needle moved. If the re-homing chord has just been
// pressed it runs Recalibrate instead, blocking until it finishes.
func (g *Gauge) Advance() bool {
	g.mu.Lock()
	if g.homing || g.testing {
		g.mu.Unlock()
		return false
	}
	if g.chord != nil && g.chord.Fired() {
		g.mu.Unlock()
		return g.Recalibrate()
	}
	moved := g.tick(g.clock.Now(), g.target, g.cfg.Speed, g.cfg.Accel)
	g.mu.Unlock()
	return moved
}

// FindZero establishes the coordinate system: the needle is assumed to be
// at full deflection, is driven back onto the low stop, which becomes 0,
// and then parked on dial zero.
func (g *Gauge) FindZero() bool {
	if !g.begin(&g.homing) {
		return false
	}
	g.home()
	g.finish()
	return true
}

// TestFullRange sweeps dial zero to max and back.
func (g *Gauge) TestFullRange() bool {
	if !g.begin(&g.testing) {
		return false
	}
	g.sweep()
	g.finish()
	return true
}

// Recalibrate runs FindZero then TestFullRange as one exclusive sequence.
func (g *Gauge) Recalibrate() bool {
	if !g.begin(&g.homing) {
		return false
	}
	g.home()
	g.mu.Lock()
	g.homing, g.testing = false, true
	g.mu.Unlock()
	g.sweep()
	g.finish()
	return true
}

func (g *Gauge) begin(flag *bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.homing || g.testing {
		return false
	}
	*flag = true
	g.mv = motion{}
	return true
}

// finish clears the mode flags and resumes tracking the last commanded
// target, which is either the value queued during the sequence or the one
// in force before it.
func (g *Gauge) finish() {
	g.mu.Lock()
	g.homing, g.testing = false, false
	g.pending = false
	g.target = g.commanded
	g.mv = motion{}
	g.mu.Unlock()
}

func (g *Gauge) home() {
	g.mu.Lock()
	g.pos = g.cfg.MaxPos
	g.mu.Unlock()

	g.runTo(0)

	g.mu.Lock()
	g.pos = 0
	g.homed = true
	g.mu.Unlock()

	g.runTo(g.cfg.DialZero)
}

func (g *Gauge) sweep() {
	g.runTo(g.cfg.MaxPos)
	g.clock.Sleep(g.cfg.Dwell)
	g.runTo(g.cfg.DialZero)
}

// runTo blocks until pos == to, stepping on the calibration profile.
func (g *Gauge) runTo(to int32) {
	for {
		g.mu.Lock()
		if g.pos == to {
			g.mv = motion{}
			g.mu.Unlock()
			return
		}
		now := g.clock.Now()
		if g.tick(now, to, g.cfg.CalSpeed, g.cfg.CalAccel) {
			g.mu.Unlock()
			continue
		}
		wait := g.mv.dueAt() - now
		g.mu.Unlock()
		g.clock.Sleep(wait)
	}
}

// Position is the current step position.
func (g *Gauge) Position() int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pos
}

// Target is the position Advance is moving toward.
func (g *Gauge) Target() int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.target
}

func (g *Gauge) Homing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.homing
}

func (g *Gauge) Testing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.testing
}

// Busy reports whether a blocking sequence owns the actuator.
func (g *Gauge) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.homing || g.testing
}

// Pending reports whether a target is queued behind a running sequence.
func (g *Gauge) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// Homed reports whether FindZero has established the coordinate system.
func (g *Gauge) Homed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.homed
}

// Steps is the total number of physical steps issued.
func (g *Gauge) Steps() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.steps
}

// Settled reports whether the needle rests on its target.
func (g *Gauge) Settled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pos == g.target && !g.homing && !g.testing
}
