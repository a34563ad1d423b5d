package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cockpit-go/bus"
	"cockpit-go/internal/logging"
	"cockpit-go/services/cockpit"
	"cockpit-go/services/telemetry"
	"cockpit-go/types"
)

// responder answers control and status requests like the cockpit loop.
func responder(t *testing.T, b *bus.Bus) {
	t.Helper()
	conn := b.NewConnection("responder")
	ctl := conn.Subscribe(bus.T("gauge", bus.WildOne, "control", bus.WildOne))
	st := conn.Subscribe(cockpit.TopicStatus())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-ctl.Channel():
				if m.Topic.At(1) == "radalt" {
					conn.Reply(m, types.OKReply{OK: true}, false)
				} else {
					conn.Reply(m, types.ErrorReply{Error: "unknown_gauge"}, false)
				}
			case m := <-st.Channel():
				conn.Reply(m, types.CockpitStatus{
					State:       "GROUND_COLD",
					SinceBeatMs: 40,
					Gauges:      []types.GaugeValue{{Name: "radalt", Position: 20, Target: 310}},
				}, false)
			}
		}
	}()
}

func newConsole(t *testing.T) (*Console, *bus.Connection, *bytes.Buffer) {
	b := bus.NewBus(16)
	responder(t, b)
	var out bytes.Buffer
	c := New(b.NewConnection("console"), &out, logging.Nop())
	c.Timeout = 2 * time.Second
	return c, b.NewConnection("tap"), &out
}

func TestSetAndPressPublishTelemetry(t *testing.T) {
	c, tap, _ := newConsole(t)
	sub := tap.Subscribe(telemetry.TopicAll())
	ctx := context.Background()

	assert.Equal(t, "ok", c.Exec(ctx, "set radalt_alt_ptr 500"))
	assert.Equal(t, "ok", c.Exec(ctx, `set _ACFT_NAME "FA-18C_hornet"`))
	assert.Equal(t, "ok", c.Exec(ctx, "press UFC_ENT"))
	assert.Equal(t, "ok", c.Exec(ctx, "release UFC_ENT"))

	cache := telemetry.NewCache()
	require.Equal(t, 4, cache.Drain(sub))
	v, _ := cache.Int("RADALT_ALT_PTR")
	assert.Equal(t, uint16(500), v)
	name, _ := cache.Text(telemetry.FieldAircraft)
	assert.Equal(t, "FA-18C_hornet", name)
	assert.False(t, cache.Pressed(telemetry.FieldUFCEnter))
}

func TestControlCommands(t *testing.T) {
	c, _, _ := newConsole(t)
	ctx := context.Background()
	assert.Equal(t, "ok", c.Exec(ctx, "home radalt"))
	assert.Equal(t, "ok", c.Exec(ctx, "RECALIBRATE radalt"))
	assert.Equal(t, "error: unknown_gauge", c.Exec(ctx, "test nope"))
}

func TestStatusCommand(t *testing.T) {
	c, _, _ := newConsole(t)
	out := c.Exec(context.Background(), "status")
	assert.True(t, strings.HasPrefix(out, "state GROUND_COLD beat 40ms"), out)
	assert.Contains(t, out, "radalt")
	assert.Contains(t, out, "310")
}

func TestUsageAndErrors(t *testing.T) {
	c, _, _ := newConsole(t)
	ctx := context.Background()
	assert.Equal(t, "", c.Exec(ctx, "   "))
	assert.Contains(t, c.Exec(ctx, "set X"), "usage")
	assert.Contains(t, c.Exec(ctx, "home"), "usage")
	assert.Contains(t, c.Exec(ctx, "fly"), "unknown command")
	assert.Contains(t, c.Exec(ctx, `set X "unterminated`), "error")
	assert.Contains(t, c.Exec(ctx, "help"), "recalibrate")
}

func TestRequestTimeout(t *testing.T) {
	b := bus.NewBus(4)
	c := New(b.NewConnection("console"), &bytes.Buffer{}, logging.Nop())
	c.Timeout = 20 * time.Millisecond
	assert.Equal(t, "error: timeout", c.Exec(context.Background(), "status"))
}

func TestRunReadsLines(t *testing.T) {
	c, _, out := newConsole(t)
	in := strings.NewReader("help\nset RADALT_ALT_PTR 7\n")
	require.NoError(t, c.Run(context.Background(), in))
	assert.Contains(t, out.String(), "commands:")
	assert.True(t, strings.HasPrefix(out.String(), "> "))
	assert.True(t, strings.HasSuffix(out.String(), "ok\n> "), out.String())
}
