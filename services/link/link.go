// Package link carries telemetry from a companion PC into the bus over a
// serial line and sends sim state and gauge readback back out.
//
// Frames are length-prefixed: one type byte, a big-endian uint16 length and
// a JSON body. The companion decodes the simulator export itself; this side
// only sees field/value pairs.
package link

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"cockpit-go/bus"
	"cockpit-go/services/cockpit"
	"cockpit-go/services/telemetry"
	"cockpit-go/types"
	"cockpit-go/x/timex"
)

const (
	tokLink  = "link"
	tokState = "state"

	PingEvery = 5 * time.Second
)

// TopicState carries the retained link status.
func TopicState() bus.Topic { return bus.T(tokLink, tokState) }

// Dial opens the configured port. Platform code installs it before Start.
var Dial func(ctx context.Context, cfg types.ConsoleConfig) (io.ReadWriteCloser, error)

var errNoDial = errors.New("link dialler not installed")

// Update is the body of an inbound publish frame.
type Update struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Readback is the body of an outbound publish frame.
type Readback struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

type Service struct {
	conn *bus.Connection
	log  zerolog.Logger

	mu     sync.Mutex
	curRun context.CancelFunc

	received atomic.Uint64
	sent     atomic.Uint64
}

// Start runs the link service until ctx is cancelled. It waits for the
// retained config/link message and reconnects whenever it changes.
func Start(ctx context.Context, conn *bus.Connection, log zerolog.Logger) *Service {
	s := &Service{conn: conn, log: log}
	go s.run(ctx)
	return s
}

// Received counts telemetry updates published from the link.
func (s *Service) Received() uint64 { return s.received.Load() }

// Sent counts readback frames written to the link.
func (s *Service) Sent() uint64 { return s.sent.Load() }

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.T("config", "link"))
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			if !cfg.Enabled {
				s.stopCurrent()
				s.publishState("idle", "disabled", nil)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg types.ConsoleConfig) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	go s.runLink(ctx, cfg)
}

func (s *Service) runLink(ctx context.Context, cfg types.ConsoleConfig) {
	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		if ctx.Err() != nil {
			return
		}
		if Dial == nil {
			s.publishState("error", "dial_unavailable", errNoDial)
			return
		}
		rwc, err := Dial(ctx, cfg)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%w (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		s.log.Info().Str("port", cfg.Port).Msg("link up")
		err = s.handleLink(ctx, rwc)
		_ = rwc.Close()
		if err == nil {
			return
		}
		delay := backoff()
		s.log.Warn().Err(err).Dur("retry", delay).Msg("link lost")
		s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%w (retry in %s)", err, delay))
		if !sleep(ctx, delay) {
			return
		}
	}
}

// handleLink owns one connection. The reader goroutine publishes inbound
// telemetry; this goroutine is the only writer.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser) error {
	rd := newFramedReader(rwc)
	wr := newFramedWriter(rwc)

	out := s.conn.Subscribe(cockpit.TopicState())
	defer s.conn.Unsubscribe(out)
	gauges := s.conn.Subscribe(cockpit.TopicGaugeValues())
	defer s.conn.Unsubscribe(gauges)

	errCh := make(chan error, 1)
	pongs := make(chan struct{}, 1)
	go func() {
		defer close(errCh)
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			switch f.Type {
			case framePing:
				select {
				case pongs <- struct{}{}:
				default:
				}
			case framePub:
				if err := s.publishUpdate(f.Payload); err != nil {
					s.log.Debug().Err(err).Msg("bad update frame")
				}
			case framePong, frameClose:
			default:
				s.log.Debug().Uint8("type", f.Type).Msg("unknown frame")
			}
		}
	}()

	tick := time.NewTicker(PingEvery)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = wr.WriteFrame(Frame{Type: frameClose})
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		case <-pongs:
			if err := wr.WriteFrame(Frame{Type: framePong}); err != nil {
				return err
			}
		case <-tick.C:
			if err := wr.WriteFrame(Frame{Type: framePing}); err != nil {
				return err
			}
		case m := <-out.Channel():
			if err := s.forward(wr, m); err != nil {
				return err
			}
		case m := <-gauges.Channel():
			if err := s.forward(wr, m); err != nil {
				return err
			}
		}
	}
}

func (s *Service) publishUpdate(body []byte) error {
	var u Update
	if err := json.Unmarshal(body, &u); err != nil {
		return err
	}
	if u.Field == "" {
		return errors.New("update without field")
	}
	v, err := normalise(u.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", u.Field, err)
	}
	s.conn.Publish(s.conn.NewMessage(telemetry.Topic(telemetry.Field(u.Field)), v, true))
	s.received.Add(1)
	return nil
}

func (s *Service) forward(wr *framedWriter, m *bus.Message) error {
	body, err := json.Marshal(Readback{Topic: topicString(m.Topic), Payload: m.Payload})
	if err != nil {
		return err
	}
	if err := wr.WriteFrame(Frame{Type: framePub, Payload: body}); err != nil {
		return err
	}
	s.sent.Add(1)
	return nil
}

// normalise turns JSON values into the payload kinds the telemetry cache
// accepts.
func normalise(v any) (any, error) {
	switch x := v.(type) {
	case string, bool:
		return x, nil
	case float64:
		if x != math.Trunc(x) || x < 0 || x > math.MaxUint16 {
			return nil, fmt.Errorf("value %v is not a uint16", x)
		}
		return uint16(x), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func topicString(t bus.Topic) string {
	s := ""
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			s += "/"
		}
		s += fmt.Sprint(t.At(i))
	}
	return s
}

// -----------------------------------------------------------------------------
// Framing
// -----------------------------------------------------------------------------

const (
	framePing  byte = 0x01
	framePong  byte = 0x02
	framePub   byte = 0x10
	frameClose byte = 0x7f
)

type Frame struct {
	Type    byte
	Payload []byte
}

type framedReader struct{ r io.Reader }
type framedWriter struct{ w io.Writer }

func newFramedReader(r io.Reader) *framedReader { return &framedReader{r: r} }
func newFramedWriter(w io.Writer) *framedWriter { return &framedWriter{w: w} }

func (fr *framedReader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	n := int(hdr[1])<<8 | int(hdr[2])
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: hdr[0], Payload: buf}, nil
}

// WriteFrame sends header and body in one write so a frame is never split
// between writers on a shared port.
func (fw *framedWriter) WriteFrame(f Frame) error {
	if len(f.Payload) > 0xFFFF {
		return fmt.Errorf("frame too large: %d", len(f.Payload))
	}
	buf := make([]byte, 0, 3+len(f.Payload))
	buf = append(buf, f.Type, byte(len(f.Payload)>>8), byte(len(f.Payload)))
	buf = append(buf, f.Payload...)
	_, err := fw.w.Write(buf)
	return err
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

// decodeConfig accepts the typed config or the generic map the config
// service publishes from YAML.
func decodeConfig(p any) (types.ConsoleConfig, error) {
	var cfg types.ConsoleConfig
	switch v := p.(type) {
	case types.ConsoleConfig:
		return v, nil
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return cfg, err
		}
		err = json.Unmarshal(b, &cfg)
		return cfg, err
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
}

func (s *Service) publishState(level, status string, err error) {
	payload := map[string]any{
		"level":  level,
		"status": status,
		"ts_ms":  timex.NowMs(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(TopicState(), payload, true))
}

func backoffSeq(lo, hi time.Duration) func() time.Duration {
	if lo <= 0 {
		lo = 100 * time.Millisecond
	}
	if hi < lo {
		hi = lo
	}
	cur := lo
	return func() time.Duration {
		d := cur
		cur = min(cur*2, hi)
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
