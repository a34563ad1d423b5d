package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cockpit-go/bus"
	"cockpit-go/errcode"
	"cockpit-go/internal/logging"
)

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "pico" {
			return nil, false
		}
		return []byte("loop_hz: 500\nheartbeat:\n  interval: 3\nrehome:\n  button_a: UFC_ENT\n"), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService(logging.Nop())
	svc.Start(WithDevice(context.Background(), "pico"), conn)

	// Retained messages reach late subscribers.
	sub := conn.Subscribe(bus.T(configPrefix, bus.WildRest))
	got := map[string]any{}
	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < 3 && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			require.Equal(t, 2, m.Topic.Len())
			key, ok := m.Topic.At(1).(string)
			require.True(t, ok, "topic[1] type %T", m.Topic.At(1))
			assert.True(t, m.Retained)
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	require.Len(t, got, 3)
	assert.Equal(t, 500, got["loop_hz"])
	hb, ok := got["heartbeat"].(map[string]any)
	require.True(t, ok, "heartbeat payload %T", got["heartbeat"])
	assert.Equal(t, 3, hb["interval"])
}

func TestConfig_PublishConfig_MissingDevice(t *testing.T) {
	conn := bus.NewBus(4).NewConnection("test-missing-device")
	err := NewConfigService(logging.Nop()).publishConfig(context.Background(), conn)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestConfig_PublishConfig_NoConfigFound(t *testing.T) {
	conn := bus.NewBus(4).NewConnection("test-no-config")
	err := NewConfigService(logging.Nop()).publishConfig(WithDevice(context.Background(), "unknown-device"), conn)
	assert.Equal(t, errcode.NoConfig, errcode.Of(err))
}

func TestEmbeddedConfigsValidate(t *testing.T) {
	for dev := range embeddedConfigs {
		c, err := Embedded(dev)
		require.NoError(t, err, dev)
		assert.Equal(t, dev, c.Device)
		assert.NotEmpty(t, c.Gauges, dev)
		assert.Equal(t, "UFC_ENT", c.Rehome.ButtonA)
	}

	c, err := Embedded("pico")
	require.NoError(t, err)
	assert.Equal(t, [4]int{2, 3, 4, 5}, c.Gauges[0].Pins)
	assert.Len(t, c.Gauges[0].Map, 5)
	assert.Equal(t, int8(-1), c.Gauges[1].Direction)
}

func TestValidateCollectsProblems(t *testing.T) {
	c, err := Embedded("pico")
	require.NoError(t, err)

	c.Gauges[0].Cap = 0
	c.Gauges[1].Pins = [4]int{2, 30, 8, 9} // GP2 taken, GP30 off-board
	c.Gauges = append(c.Gauges, c.Gauges[0])
	hot := 150
	c.Detector.HotThreshold = &hot

	err = Validate(c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcode.InvalidConfig))
	assert.True(t, errors.Is(err, errcode.PinInUse))
	msg := err.Error()
	assert.Contains(t, msg, "duplicate name")
	assert.Contains(t, msg, "GP30 not on board pico")
	assert.Contains(t, msg, "hot threshold")
}

func TestDecodeDefaults(t *testing.T) {
	c, err := Decode([]byte("buttons:\n  - {field: UFC_ENT, pin: 14}\n"))
	require.NoError(t, err)
	assert.Equal(t, 1000, c.LoopHz)
	assert.Equal(t, "UFC_CLR", c.Rehome.ButtonB)
	assert.Equal(t, uint16(20), c.Buttons[0].DebounceMs)
	assert.Equal(t, 2.0, c.Heartbeat.IntervalS)

	_, err = Decode([]byte("gauges: {not: a list}"))
	assert.Equal(t, errcode.InvalidConfig, errcode.Of(err))
}

func TestDecodeHotThreshold(t *testing.T) {
	c, err := Decode([]byte("detector: {hot_threshold: 0}\n"))
	require.NoError(t, err)
	require.NotNil(t, c.Detector.HotThreshold)
	assert.Equal(t, 0, *c.Detector.HotThreshold)

	c, err = Decode([]byte("detector: {hot_threshold: -5}\n"))
	require.NoError(t, err)
	err = Validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hot threshold")

	c, err = Decode([]byte("loop_hz: 500\n"))
	require.NoError(t, err)
	assert.Nil(t, c.Detector.HotThreshold)
}

func TestValidateSerialPorts(t *testing.T) {
	c, err := Embedded("pico")
	require.NoError(t, err)
	assert.True(t, c.Link.Enabled)
	assert.Equal(t, "uart0", c.Link.Port)

	// Moving the link onto uart1 collides with the radalt coils on GP4/GP5.
	c.Link.Port = "uart1"
	err = Validate(c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcode.PinInUse))

	c.Link.Port = "usb"
	err = Validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "console and link both on port usb")

	c.Link.Port = "uart2"
	err = Validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link port uart2 not on board pico")
}
