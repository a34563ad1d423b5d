// Package heartbeat periodically logs a one-line summary of the cockpit:
// simulator state and where every gauge needle is.
package heartbeat

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"cockpit-go/bus"
	"cockpit-go/internal/logging"
	"cockpit-go/types"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicState           = bus.T("simstate", "state")
	topicGaugeValues     = bus.T("gauge", bus.WildOne, "value")
)

const defaultInterval = 2 * time.Second

type Service struct {
	Log zerolog.Logger

	state  types.SimState
	gauges map[string]types.GaugeValue
	beats  uint64
}

func New(log zerolog.Logger) *Service {
	return &Service{
		Log:    logging.Component(log, "heartbeat"),
		gauges: map[string]types.GaugeValue{},
	}
}

// intervalFrom reads {"interval": seconds} as published by the config
// service; YAML numbers arrive as int or float64.
func intervalFrom(p any) (time.Duration, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	var secs float64
	switch v := m["interval"].(type) {
	case int:
		secs = float64(v)
	case float64:
		secs = v
	default:
		return 0, false
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	stateSub := conn.Subscribe(topicState)
	defer conn.Unsubscribe(stateSub)
	gaugeSub := conn.Subscribe(topicGaugeValues)
	defer conn.Unsubscribe(gaugeSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Log.Info().Msg("heartbeat service stopping")
			return
		case <-tick.C:
			s.beat()
		case msg := <-cfgSub.Channel():
			if iv, ok := intervalFrom(msg.Payload); ok {
				tick.Reset(iv)
				s.Log.Info().Dur("interval", iv).Msg("heartbeat interval set")
			}
		case msg := <-stateSub.Channel():
			if st, ok := msg.Payload.(types.SimState); ok {
				s.state = st
			}
		case msg := <-gaugeSub.Channel():
			if v, ok := msg.Payload.(types.GaugeValue); ok {
				s.gauges[v.Name] = v
			}
		}
	}
}

func (s *Service) beat() {
	s.beats++
	names := make([]string, 0, len(s.gauges))
	for n := range s.gauges {
		names = append(names, n)
	}
	sort.Strings(names)

	pos := zerolog.Dict()
	for _, n := range names {
		pos.Int32(n, s.gauges[n].Position)
	}
	state := s.state.State
	if state == "" {
		state = "UNKNOWN"
	}
	s.Log.Info().Uint64("beat", s.beats).Str("state", state).Dict("gauges", pos).Msg("heartbeat")
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
