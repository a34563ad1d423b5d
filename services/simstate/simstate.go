// Package simstate classifies the remote simulator's run state from the
// heartbeat counter and a few telemetry fields.
//
// The state is recomputed from scratch on every call; the only memory
// carried between calls is the last heartbeat value and when it changed.
package simstate

import (
	"fmt"
	"time"

	"cockpit-go/errcode"
	"cockpit-go/services/telemetry"
	"cockpit-go/types"
)

type State uint8

const (
	Exited State = iota
	Paused
	GroundCold
	GroundHot
	Airborne
)

var stateNames = [...]string{
	Exited:     "EXITED",
	Paused:     "PAUSED",
	GroundCold: "GROUND_COLD",
	GroundHot:  "GROUND_HOT",
	Airborne:   "AIRBORNE",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Running reports whether the simulator is up in any form, paused
// included.
func (s State) Running() bool { return s != Exited }

// Parse maps a state name back to its value.
func Parse(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

const (
	DefaultPausedTimeout = 10 * time.Second
	DefaultExitedTimeout = 1800 * time.Second
	DefaultHotThreshold  = 50
)

type Config struct {
	PausedTimeout time.Duration
	ExitedTimeout time.Duration
	HotThreshold  int // engine percent at or above which an engine counts as running
}

// DefaultConfig returns the stock timeouts and threshold.
func DefaultConfig() Config {
	return Config{
		PausedTimeout: DefaultPausedTimeout,
		ExitedTimeout: DefaultExitedTimeout,
		HotThreshold:  DefaultHotThreshold,
	}
}

// FromTypes converts the wire config. Zero timeouts and a nil threshold fall
// back to defaults; other values pass through for Validate to judge.
func FromTypes(c types.DetectorConfig) Config {
	cfg := DefaultConfig()
	if c.PausedTimeoutMs > 0 {
		cfg.PausedTimeout = time.Duration(c.PausedTimeoutMs) * time.Millisecond
	}
	if c.ExitedTimeoutMs > 0 {
		cfg.ExitedTimeout = time.Duration(c.ExitedTimeoutMs) * time.Millisecond
	}
	if c.HotThreshold != nil {
		cfg.HotThreshold = *c.HotThreshold
	}
	return cfg
}

func (c Config) Validate() error {
	const op = "simstate.Config"
	switch {
	case c.PausedTimeout <= 0:
		return errcode.New(errcode.InvalidConfig, op, "paused timeout must be > 0")
	case c.ExitedTimeout < c.PausedTimeout:
		return errcode.New(errcode.InvalidConfig, op, "exited timeout must be >= paused timeout")
	case c.HotThreshold < 0 || c.HotThreshold > 100:
		return errcode.New(errcode.InvalidConfig, op, "hot threshold must be within 0..100")
	}
	return nil
}

// Detector is not safe for concurrent use; the host loop owns it.
type Detector struct {
	cfg Config

	started    bool
	lastBeat   uint16
	lastChange time.Duration
}

func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

func (d *Detector) Config() Config { return d.cfg }

// Evaluate returns the state for snap at time now. now must be monotonic.
// Until the first heartbeat change is seen, elapsed time is measured from
// the first call.
func (d *Detector) Evaluate(snap telemetry.Snapshot, now time.Duration) State {
	if !d.started {
		d.started = true
		d.lastBeat = snap.Heartbeat
		d.lastChange = now
	} else if snap.Heartbeat != d.lastBeat {
		d.lastBeat = snap.Heartbeat
		d.lastChange = now
	}
	since := now - d.lastChange

	switch {
	case snap.Aircraft == "" || since >= d.cfg.ExitedTimeout:
		return Exited
	case since >= d.cfg.PausedTimeout:
		return Paused
	case !snap.WeightOnWheels[0] && !snap.WeightOnWheels[1]:
		return Airborne
	case snap.EnginePercent[0] >= d.cfg.HotThreshold && snap.EnginePercent[1] >= d.cfg.HotThreshold:
		return GroundHot
	default:
		return GroundCold
	}
}

// SinceBeat returns how long the heartbeat has been unchanged as of now.
func (d *Detector) SinceBeat(now time.Duration) time.Duration {
	if !d.started {
		return 0
	}
	return now - d.lastChange
}
