package simstate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cockpit-go/errcode"
	"cockpit-go/services/telemetry"
	"cockpit-go/types"
)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(DefaultConfig())
	require.NoError(t, err)
	return d
}

func ground(beat uint16, l, r int) telemetry.Snapshot {
	return telemetry.Snapshot{
		Heartbeat:      beat,
		Aircraft:       "FA-18C_hornet",
		EnginePercent:  [2]int{l, r},
		WeightOnWheels: [2]bool{true, true},
	}
}

func TestDefaultsResolveToExited(t *testing.T) {
	d := newDetector(t)
	c := telemetry.NewCache()
	assert.Equal(t, Exited, d.Evaluate(c.Snapshot(), 0))
	assert.False(t, d.Evaluate(c.Snapshot(), time.Second).Running())
}

func TestFreshHeartbeatNeverPausedOrExited(t *testing.T) {
	d := newDetector(t)
	now := time.Duration(0)
	for beat := uint16(1); beat < 500; beat++ {
		// Gaps just under the paused timeout.
		now += DefaultPausedTimeout - time.Millisecond
		s := d.Evaluate(ground(beat, 0, 0), now)
		require.NotEqual(t, Exited, s, "beat %d", beat)
		require.NotEqual(t, Paused, s, "beat %d", beat)
	}
}

func TestHeartbeatWrapCountsAsChange(t *testing.T) {
	d := newDetector(t)
	d.Evaluate(ground(0xFFFF, 0, 0), 0)
	assert.Equal(t, GroundCold, d.Evaluate(ground(0, 0, 0), 9*time.Second))
	assert.Equal(t, GroundCold, d.Evaluate(ground(0, 0, 0), 18*time.Second))
	assert.Equal(t, Paused, d.Evaluate(ground(0, 0, 0), 19*time.Second))
}

func TestEmptyAircraftIsExitedImmediately(t *testing.T) {
	d := newDetector(t)
	d.Evaluate(ground(1, 60, 60), 0)
	snap := ground(2, 60, 60)
	snap.Aircraft = ""
	assert.Equal(t, Exited, d.Evaluate(snap, time.Millisecond))
}

func TestStaleHeartbeatIsPaused(t *testing.T) {
	d := newDetector(t)
	d.Evaluate(ground(5, 60, 60), time.Second)
	assert.Equal(t, GroundHot, d.Evaluate(ground(5, 60, 60), time.Second+9999*time.Millisecond))
	assert.Equal(t, Paused, d.Evaluate(ground(5, 60, 60), time.Second+10000*time.Millisecond))

	air := ground(5, 0, 0)
	air.WeightOnWheels = [2]bool{false, false}
	assert.Equal(t, Paused, d.Evaluate(air, time.Minute), "pause wins over airborne")
}

func TestVeryStaleHeartbeatIsExited(t *testing.T) {
	d := newDetector(t)
	d.Evaluate(ground(5, 60, 60), 0)
	assert.Equal(t, Paused, d.Evaluate(ground(5, 60, 60), 1_799_999*time.Millisecond))
	assert.Equal(t, Exited, d.Evaluate(ground(5, 60, 60), 1_800_000*time.Millisecond))

	// A new beat recovers.
	assert.Equal(t, GroundHot, d.Evaluate(ground(6, 60, 60), 1_800_001*time.Millisecond))
}

func TestAirborneIgnoresEngines(t *testing.T) {
	d := newDetector(t)
	s := ground(1, 0, 0)
	s.WeightOnWheels = [2]bool{false, false}
	assert.Equal(t, Airborne, d.Evaluate(s, 0))

	s.Heartbeat = 2
	s.WeightOnWheels = [2]bool{true, false}
	assert.Equal(t, GroundCold, d.Evaluate(s, time.Millisecond), "one leg down is on ground")
}

func TestGroundHotNeedsBothEngines(t *testing.T) {
	cases := []struct {
		l, r int
		want State
	}{
		{60, 40, GroundCold},
		{40, 60, GroundCold},
		{60, 60, GroundHot},
		{50, 50, GroundHot},
		{49, 100, GroundCold},
		{0, 0, GroundCold},
	}
	for _, tc := range cases {
		d := newDetector(t)
		assert.Equal(t, tc.want, d.Evaluate(ground(1, tc.l, tc.r), 0), "rpm %d/%d", tc.l, tc.r)
	}
}

func TestFromCacheSnapshot(t *testing.T) {
	d := newDetector(t)
	c := telemetry.NewCache()
	c.Set(telemetry.FieldAircraft, "FA-18C_hornet")
	c.Set(telemetry.FieldHeartbeat, uint16(1))
	c.Set(telemetry.FieldRPMLeft, " 65")
	c.Set(telemetry.FieldRPMRight, "70")
	assert.Equal(t, GroundHot, d.Evaluate(c.Snapshot(), 0))

	c.Set(telemetry.FieldHeartbeat, uint16(2))
	c.Set(telemetry.FieldWOWLeft, uint16(0))
	c.Set(telemetry.FieldWOWRight, uint16(0))
	assert.Equal(t, Airborne, d.Evaluate(c.Snapshot(), time.Second))
}

func TestConfigValidation(t *testing.T) {
	bad := []Config{
		{PausedTimeout: 0, ExitedTimeout: time.Second, HotThreshold: 50},
		{PausedTimeout: 2 * time.Second, ExitedTimeout: time.Second, HotThreshold: 50},
		{PausedTimeout: time.Second, ExitedTimeout: time.Second, HotThreshold: 101},
		{PausedTimeout: time.Second, ExitedTimeout: time.Second, HotThreshold: -1},
	}
	for i, c := range bad {
		_, err := New(c)
		require.Error(t, err, "case %d", i)
		assert.True(t, errors.Is(err, errcode.InvalidConfig), "case %d", i)
	}
}

func TestCustomTimeouts(t *testing.T) {
	cfg := FromTypes(types.DetectorConfig{PausedTimeoutMs: 500, ExitedTimeoutMs: 2000})
	assert.Equal(t, DefaultHotThreshold, cfg.HotThreshold)

	d, err := New(cfg)
	require.NoError(t, err)
	d.Evaluate(ground(1, 0, 0), 0)
	assert.Equal(t, Paused, d.Evaluate(ground(1, 0, 0), 500*time.Millisecond))
	assert.Equal(t, Exited, d.Evaluate(ground(1, 0, 0), 2*time.Second))
	assert.Equal(t, 2*time.Second, d.SinceBeat(2*time.Second))
}

func TestExplicitHotThreshold(t *testing.T) {
	zero := 0
	cfg := FromTypes(types.DetectorConfig{HotThreshold: &zero})
	assert.Equal(t, 0, cfg.HotThreshold)

	d, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, GroundHot, d.Evaluate(ground(1, 0, 0), 0), "threshold 0 makes any rpm hot")

	neg := -5
	cfg = FromTypes(types.DetectorConfig{HotThreshold: &neg})
	assert.Equal(t, -5, cfg.HotThreshold)
	_, err = New(cfg)
	assert.True(t, errors.Is(err, errcode.InvalidConfig))
}

func TestStateNames(t *testing.T) {
	for _, s := range []State{Exited, Paused, GroundCold, GroundHot, Airborne} {
		got, ok := Parse(s.String())
		require.True(t, ok)
		assert.Equal(t, s, got)
	}
	assert.Equal(t, "State(9)", State(9).String())
	_, ok := Parse("TAXIING")
	assert.False(t, ok)

	assert.False(t, Exited.Running())
	for _, s := range []State{Paused, GroundCold, GroundHot, Airborne} {
		assert.True(t, s.Running(), s.String())
	}
}
