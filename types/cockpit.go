package types

// ------------------------
// Readback payloads (retained)
// ------------------------

// SimState is published on "simstate/state" whenever the state changes.
type SimState struct {
	State   string `json:"state"`   // EXITED, PAUSED, GROUND_COLD, GROUND_HOT, AIRBORNE
	Running bool   `json:"running"` // state != EXITED
	TSms    int64  `json:"ts_ms"`   // clock ms at the transition
}

// GaugeValue is published on "gauge/<name>/value".
type GaugeValue struct {
	Name     string `json:"name"`
	Position int32  `json:"position"`
	Target   int32  `json:"target"`
	Homing   bool   `json:"homing,omitempty"`
	Testing  bool   `json:"testing,omitempty"`
}

// CockpitStatus answers "cockpit/control/status".
type CockpitStatus struct {
	State       string       `json:"state"`
	SinceBeatMs int64        `json:"since_beat_ms"` // time since the heartbeat last changed
	Gauges      []GaugeValue `json:"gauges"`
}

// ------------------------
// Generic replies
// ------------------------

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
