package gauge

import (
	"math"
	"time"

	"cockpit-go/x/mathx"
)

// motion is the speed profile of the move in progress. Speeds are in
// steps/s, accelerations in steps/s².
type motion struct {
	moving bool
	dir    int8
	speed  float64 // speed the next step is scheduled at
	last   time.Duration
}

func (m motion) dueAt() time.Duration {
	return m.last + time.Duration(float64(time.Second)/m.speed)
}

// tick issues one step toward target if it is due at now. Starting from
// rest or reversing steps at once; after that steps are spaced by the
// current speed, which ramps up by accel and ramps down early enough to
// arrive at minimum speed. A step never passes the target.
// Caller holds g.mu.
func (g *Gauge) tick(now time.Duration, target int32, maxSpeed, accel float64) bool {
	d := target - g.pos
	if d == 0 {
		g.mv = motion{}
		return false
	}
	dir := int8(mathx.Sign(d))
	if g.mv.moving && g.mv.dir == dir && now < g.mv.dueAt() {
		return false
	}
	if !g.mv.moving || g.mv.dir != dir {
		g.mv = motion{}
	}

	g.pos += int32(dir)
	g.steps++
	g.act.Step(dir * g.cfg.Direction)

	remaining := mathx.Abs(target - g.pos)
	if remaining == 0 {
		g.mv = motion{}
		return true
	}
	g.mv = motion{
		moving: true,
		dir:    dir,
		speed:  nextSpeed(g.mv.speed, float64(remaining), maxSpeed, accel),
		last:   now,
	}
	return true
}

// nextSpeed applies one step's worth of acceleration: v² changes by 2a
// per step. Deceleration starts once the stopping distance v²/2a reaches
// the remaining distance. The result stays within [sqrt(2a), max].
func nextSpeed(v, remaining, top, accel float64) float64 {
	v2 := v * v
	if v2/(2*accel) >= remaining {
		v2 -= 2 * accel
	} else {
		v2 += 2 * accel
	}
	floor := 2 * accel
	if v2 < floor {
		v2 = floor
	}
	return math.Min(math.Sqrt(v2), top)
}
