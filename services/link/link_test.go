package link

import (
	"context"
	"encoding/json"
	"io"
	"net"
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

func nextState(t *testing.T, sub *bus.Subscription) map[string]any {
	t.Helper()
	select {
	case m := <-sub.Channel():
		p, ok := m.Payload.(map[string]any)
		require.True(t, ok, "state payload type %T", m.Payload)
		return p
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for link/state")
		return nil
	}
}

func requireState(t *testing.T, sub *bus.Subscription, level, status string) {
	t.Helper()
	p := nextState(t, sub)
	assert.Equal(t, level, p["level"])
	assert.Equal(t, status, p["status"], "payload %v", p)
}

// readFrame reads frames from the remote end until one of type typ arrives.
func readFrame(t *testing.T, rd *framedReader, typ byte) Frame {
	t.Helper()
	done := make(chan Frame, 1)
	go func() {
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				close(done)
				return
			}
			if f.Type == typ {
				done <- f
				return
			}
		}
	}()
	select {
	case f, ok := <-done:
		require.True(t, ok, "link closed before frame 0x%02x", typ)
		return f
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for frame 0x%02x", typ)
		return Frame{}
	}
}

func startLinked(t *testing.T) (*bus.Connection, *Service, *bus.Subscription, net.Conn) {
	t.Helper()
	remotes := make(chan net.Conn, 1)
	prev := Dial
	t.Cleanup(func() { Dial = prev })
	Dial = func(ctx context.Context, _ types.ConsoleConfig) (io.ReadWriteCloser, error) {
		lc, rc := net.Pipe()
		select {
		case remotes <- rc:
		default:
		}
		return lc, nil
	}

	b := bus.NewBus(16)
	conn := b.NewConnection("test")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	stateSub := conn.Subscribe(TopicState())
	t.Cleanup(func() { conn.Unsubscribe(stateSub) })
	svc := Start(ctx, b.NewConnection("link"), logging.Nop())
	requireState(t, stateSub, "idle", "awaiting_config")

	// Same shape the config service publishes from YAML.
	conn.Publish(conn.NewMessage(bus.T("config", "link"), map[string]any{
		"enabled": true, "port": "uart0", "baud": 115200,
	}, true))
	requireState(t, stateSub, "up", "link_established")
	return conn, svc, stateSub, <-remotes
}

func TestLinkPublishesInboundTelemetry(t *testing.T) {
	conn, svc, _, remote := startLinked(t)
	defer remote.Close()
	tel := conn.Subscribe(telemetry.TopicAll())
	defer conn.Unsubscribe(tel)

	wr := newFramedWriter(remote)
	for _, u := range []Update{
		{Field: "_ACFT_NAME", Value: "FA-18C_hornet"},
		{Field: "_UPDATE_COUNTER", Value: 7},
		{Field: "EXT_WOW_LEFT", Value: 2.5}, // rejected
	} {
		body, err := json.Marshal(u)
		require.NoError(t, err)
		require.NoError(t, wr.WriteFrame(Frame{Type: framePub, Payload: body}))
	}

	cache := telemetry.NewCache()
	require.Eventually(t, func() bool {
		cache.Drain(tel)
		return svc.Received() == 2
	}, time.Second, 5*time.Millisecond)
	snap := cache.Snapshot()
	assert.Equal(t, "FA-18C_hornet", snap.Aircraft)
	assert.Equal(t, uint16(7), snap.Heartbeat)
	assert.True(t, snap.WeightOnWheels[0], "fractional value ignored")
}

func TestLinkForwardsReadback(t *testing.T) {
	conn, svc, _, remote := startLinked(t)
	defer remote.Close()
	rd := newFramedReader(remote)

	conn.Publish(conn.NewMessage(cockpit.TopicState(), types.SimState{State: "AIRBORNE", Running: true}, true))
	f := readFrame(t, rd, framePub)

	var rb struct {
		Topic   string         `json:"topic"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &rb))
	assert.Equal(t, "simstate/state", rb.Topic)
	assert.Equal(t, "AIRBORNE", rb.Payload["state"])
	assert.Eventually(t, func() bool { return svc.Sent() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestLinkAnswersPing(t *testing.T) {
	_, _, _, remote := startLinked(t)
	defer remote.Close()

	go func() { _ = newFramedWriter(remote).WriteFrame(Frame{Type: framePing}) }()
	readFrame(t, newFramedReader(remote), framePong)
}

func TestLinkLossIsReported(t *testing.T) {
	_, _, stateSub, remote := startLinked(t)
	require.NoError(t, remote.Close())
	requireState(t, stateSub, "degraded", "link_lost_retrying")
}

func TestLinkDisabledAndBadConfig(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stateSub := conn.Subscribe(TopicState())
	defer conn.Unsubscribe(stateSub)
	Start(ctx, b.NewConnection("link"), logging.Nop())
	requireState(t, stateSub, "idle", "awaiting_config")

	conn.Publish(conn.NewMessage(bus.T("config", "link"), types.ConsoleConfig{Enabled: false}, true))
	requireState(t, stateSub, "idle", "disabled")

	conn.Publish(conn.NewMessage(bus.T("config", "link"), 42, true))
	requireState(t, stateSub, "error", "config_decode_failed")
}

func TestFraming(t *testing.T) {
	lc, rc := net.Pipe()
	defer lc.Close()
	defer rc.Close()
	go func() { _ = newFramedWriter(lc).WriteFrame(Frame{Type: framePub, Payload: []byte(`{"a":1}`)}) }()
	f, err := newFramedReader(rc).ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, framePub, f.Type)
	assert.Equal(t, `{"a":1}`, string(f.Payload))

	err = newFramedWriter(io.Discard).WriteFrame(Frame{Type: framePub, Payload: make([]byte, 0x10000)})
	assert.Error(t, err)
}

func TestBackoffSeq(t *testing.T) {
	next := backoffSeq(250*time.Millisecond, time.Second)
	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, next())
	}
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second, time.Second, time.Second}, got)
}
