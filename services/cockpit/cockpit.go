// Package cockpit is the host loop: it feeds telemetry into the cache,
// classifies the simulator state, advances every gauge and publishes
// readback for lighting and tooling.
package cockpit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cockpit-go/bus"
	"cockpit-go/drivers/gauge"
	"cockpit-go/errcode"
	"cockpit-go/internal/logging"
	"cockpit-go/internal/platform"
	"cockpit-go/services/simstate"
	"cockpit-go/services/telemetry"
	"cockpit-go/types"
	"cockpit-go/x/timex"
)

const DefaultPublishEvery = 50 * time.Millisecond

type Options struct {
	Clock timex.Clock
	Pins  platform.PinFactory
	Log   zerolog.Logger

	// PublishEvery rate-limits gauge value readback.
	PublishEvery time.Duration

	// Actuators overrides the configured driver per gauge name.
	Actuators map[string]gauge.Actuator
}

type Service struct {
	conn  *bus.Connection
	cfg   types.CockpitConfig
	clock timex.Clock
	log   zerolog.Logger

	cache   *telemetry.Cache
	det     *simstate.Detector
	gauges  []*gauge.Gauge
	byName  map[string]*gauge.Gauge
	gcfg    map[string]types.GaugeConfig
	buttons []*button

	telSub    *bus.Subscription
	ctlSub    *bus.Subscription
	statusSub *bus.Subscription

	state     simstate.State
	published bool
	every     time.Duration
	lastPub   time.Duration
	pubOnce   bool
	lastVals  map[string]types.GaugeValue
	period    time.Duration
	cycles    uint64
}

func New(conn *bus.Connection, cfg types.CockpitConfig, opts Options) (*Service, error) {
	if opts.Clock == nil {
		opts.Clock = timex.System()
	}
	if opts.Pins == nil {
		opts.Pins = platform.DefaultPinFactory()
	}
	if opts.PublishEvery <= 0 {
		opts.PublishEvery = DefaultPublishEvery
	}
	hz := cfg.LoopHz
	if hz <= 0 {
		hz = 1000
	}

	det, err := simstate.New(simstate.FromTypes(cfg.Detector))
	if err != nil {
		return nil, err
	}

	s := &Service{
		conn:     conn,
		cfg:      cfg,
		clock:    opts.Clock,
		log:      logging.Component(opts.Log, "cockpit"),
		cache:    telemetry.NewCache(),
		det:      det,
		byName:   map[string]*gauge.Gauge{},
		gcfg:     map[string]types.GaugeConfig{},
		every:    opts.PublishEvery,
		lastVals: map[string]types.GaugeValue{},
		period:   time.Second / time.Duration(hz),
	}

	claims := platform.NewClaims()
	for _, gc := range cfg.Gauges {
		if _, dup := s.byName[gc.Name]; dup {
			return nil, &errcode.E{C: errcode.InvalidConfig, Op: "cockpit.New", Msg: "duplicate gauge " + gc.Name}
		}
		act, ok := opts.Actuators[gc.Name]
		if !ok {
			if gc.Driver != "" && gc.Driver != "fake" {
				for _, n := range gc.Pins {
					if err := claims.Claim("gauge:"+gc.Name, n); err != nil {
						return nil, err
					}
				}
			}
			if act, err = platform.BuildActuator(gc, opts.Pins); err != nil {
				return nil, err
			}
		}
		g, err := gauge.New(gauge.FromTypes(gc), act, s.clock)
		if err != nil {
			return nil, err
		}
		s.cache.OnInt(telemetry.Field(gc.Field), g.SetTarget)
		if a, b := cfg.Rehome.ButtonA, cfg.Rehome.ButtonB; a != "" && b != "" {
			g.SetChord(gauge.NewChord(
				func() bool { return s.cache.Pressed(telemetry.Field(a)) },
				func() bool { return s.cache.Pressed(telemetry.Field(b)) },
			))
		}
		s.gauges = append(s.gauges, g)
		s.byName[gc.Name] = g
		s.gcfg[gc.Name] = gc
	}

	for _, bc := range cfg.Buttons {
		if err := claims.Claim("button:"+bc.Field, bc.Pin); err != nil {
			return nil, err
		}
		pin, ok := opts.Pins.ByNumber(bc.Pin)
		if !ok {
			return nil, &errcode.E{C: errcode.UnknownPin, Op: "cockpit.New", Msg: fmt.Sprintf("button %s GP%d", bc.Field, bc.Pin)}
		}
		b, err := newButton(bc, pin)
		if err != nil {
			return nil, err
		}
		s.cache.Set(b.field, b.stable)
		s.buttons = append(s.buttons, b)
	}

	s.telSub = conn.Subscribe(telemetry.TopicAll())
	s.ctlSub = conn.Subscribe(bus.T(tokGauge, bus.WildOne, tokControl, bus.WildOne))
	s.statusSub = conn.Subscribe(TopicStatus())
	return s, nil
}

// Cache exposes the telemetry cache, e.g. for direct field injection.
func (s *Service) Cache() *telemetry.Cache { return s.cache }

// State is the state computed by the last Cycle.
func (s *Service) State() simstate.State { return s.state }

func (s *Service) Gauge(name string) (*gauge.Gauge, bool) {
	g, ok := s.byName[name]
	return g, ok
}

func (s *Service) Gauges() []*gauge.Gauge { return s.gauges }

func (s *Service) Cycles() uint64 { return s.cycles }

// Status snapshots the state, heartbeat age and every gauge.
func (s *Service) Status() types.CockpitStatus {
	st := types.CockpitStatus{
		State:       s.state.String(),
		SinceBeatMs: s.det.SinceBeat(s.clock.Now()).Milliseconds(),
	}
	for _, g := range s.gauges {
		st.Gauges = append(st.Gauges, valueOf(g))
	}
	return st
}

// Calibrate runs the boot sequences each gauge asks for. It blocks.
func (s *Service) Calibrate() {
	for _, g := range s.gauges {
		gc := s.gcfg[g.Name()]
		start := s.clock.Now()
		var ran string
		switch {
		case gc.HomeOnBoot && gc.TestOnBoot:
			g.Recalibrate()
			ran = VerbRecalibrate
		case gc.HomeOnBoot:
			g.FindZero()
			ran = VerbHome
		case gc.TestOnBoot:
			g.TestFullRange()
			ran = VerbTest
		default:
			continue
		}
		s.log.Info().Str("gauge", g.Name()).Str("sequence", ran).
			Dur("took", s.clock.Now()-start).Msg("boot calibration done")
	}
}

// Cycle runs one pass of the host loop. Only a control request or the
// re-homing chord can make it block.
func (s *Service) Cycle() {
	s.cycles++
	s.cache.Drain(s.telSub)

	now := s.clock.Now()
	for _, b := range s.buttons {
		if pressed, changed := b.poll(now); changed {
			s.cache.Set(b.field, pressed)
			s.log.Debug().Str("field", string(b.field)).Bool("pressed", pressed).Msg("button")
		}
	}

	st := s.det.Evaluate(s.cache.Snapshot(), now)
	if !s.published || st != s.state {
		prev := s.state
		s.state, s.published = st, true
		s.conn.Publish(s.conn.NewMessage(TopicState(), types.SimState{
			State:   st.String(),
			Running: st.Running(),
			TSms:    now.Milliseconds(),
		}, true))
		s.log.Info().Str("state", st.String()).Str("prev", prev.String()).Msg("sim state")
	}

	for _, g := range s.gauges {
		g.Advance()
	}

	s.serveControl()
	s.publishGauges(s.clock.Now(), false)
}

// Run cycles at the configured loop rate until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info().Int("gauges", len(s.gauges)).Dur("period", s.period).Msg("cockpit loop starting")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("cockpit loop stopping")
			return ctx.Err()
		default:
		}
		s.Cycle()
		s.clock.Sleep(s.period)
	}
}

// Close drops the bus subscriptions.
func (s *Service) Close() {
	s.conn.Unsubscribe(s.telSub)
	s.conn.Unsubscribe(s.ctlSub)
	s.conn.Unsubscribe(s.statusSub)
}

func (s *Service) serveControl() {
	for {
		select {
		case m, ok := <-s.ctlSub.Channel():
			if !ok {
				return
			}
			s.handleGaugeControl(m)
		case m, ok := <-s.statusSub.Channel():
			if !ok {
				return
			}
			s.conn.Reply(m, s.Status(), false)
		default:
			return
		}
	}
}

func (s *Service) handleGaugeControl(m *bus.Message) {
	name, _ := m.Topic.At(1).(string)
	verb, _ := m.Topic.At(3).(string)
	g, ok := s.byName[name]
	if !ok {
		s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(errcode.UnknownGauge)}, false)
		return
	}
	var run func() bool
	switch verb {
	case VerbHome:
		run = g.FindZero
	case VerbTest:
		run = g.TestFullRange
	case VerbRecalibrate:
		run = g.Recalibrate
	default:
		s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(errcode.InvalidTopic)}, false)
		return
	}
	s.log.Info().Str("gauge", name).Str("sequence", verb).Msg("calibration requested")
	if !run() {
		s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(errcode.Busy)}, false)
		return
	}
	s.publishGauges(s.clock.Now(), true)
	s.conn.Reply(m, types.OKReply{OK: true}, false)
}

// publishGauges sends changed gauge values, at most once per s.every
// unless forced.
func (s *Service) publishGauges(now time.Duration, force bool) {
	if !force && s.pubOnce && now-s.lastPub < s.every {
		return
	}
	s.lastPub, s.pubOnce = now, true
	for _, g := range s.gauges {
		v := valueOf(g)
		if old, ok := s.lastVals[v.Name]; ok && old == v {
			continue
		}
		s.lastVals[v.Name] = v
		s.conn.Publish(s.conn.NewMessage(TopicGaugeValue(v.Name), v, true))
	}
}

func valueOf(g *gauge.Gauge) types.GaugeValue {
	return types.GaugeValue{
		Name:     g.Name(),
		Position: g.Position(),
		Target:   g.Target(),
		Homing:   g.Homing(),
		Testing:  g.Testing(),
	}
}
