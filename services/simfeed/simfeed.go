// Package simfeed plays scripted telemetry onto the bus in place of the
// simulator, for the bench and for tests.
package simfeed

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cockpit-go/bus"
	"cockpit-go/errcode"
	"cockpit-go/internal/capture"
	"cockpit-go/services/telemetry"
)

// DefaultBeatEvery is close to the export rate of the simulator.
const DefaultBeatEvery = 30 * time.Millisecond

// Event sets one field at an offset from the start of the scenario. Value
// is an integer or a string, as the simulator exports it.
type Event struct {
	At    time.Duration `yaml:"at"`
	Field string        `yaml:"field"`
	Value any           `yaml:"value"`
}

// Span is a half-open interval [From, To) during which the heartbeat counter
// advances.
type Span struct {
	From time.Duration `yaml:"from"`
	To   time.Duration `yaml:"to"`
}

func (s Span) contains(t time.Duration) bool { return t >= s.From && t < s.To }

type Scenario struct {
	Name      string        `yaml:"name"`
	Events    []Event       `yaml:"events"`
	Beats     []Span        `yaml:"beats"`
	BeatEvery time.Duration `yaml:"beat_every"`
}

// End is the time of the last event or the end of the last beat span,
// whichever is later.
func (s Scenario) End() time.Duration {
	var end time.Duration
	for _, e := range s.Events {
		end = max(end, e.At)
	}
	for _, b := range s.Beats {
		end = max(end, b.To)
	}
	return end
}

func (s Scenario) Validate() error {
	bad := func(msg string) error {
		return fmt.Errorf("scenario %q: %w", s.Name, errcode.New(errcode.InvalidConfig, "simfeed", msg))
	}
	if s.BeatEvery < 0 {
		return bad("beat_every must not be negative")
	}
	for i, e := range s.Events {
		if e.At < 0 {
			return bad(fmt.Sprintf("event %d: negative time", i))
		}
		if strings.TrimSpace(e.Field) == "" {
			return bad(fmt.Sprintf("event %d: missing field", i))
		}
		switch e.Value.(type) {
		case int, uint16, bool, string:
		default:
			return bad(fmt.Sprintf("event %d (%s): value %v is not an integer or string", i, e.Field, e.Value))
		}
	}
	for i, b := range s.Beats {
		if b.From < 0 || b.To <= b.From {
			return bad(fmt.Sprintf("beat span %d: need 0 <= from < to", i))
		}
	}
	return nil
}

// LoadYAML reads and validates a scenario document.
func LoadYAML(r io.Reader) (Scenario, error) {
	var sc Scenario
	if err := yaml.NewDecoder(r).Decode(&sc); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// FromRecords turns a captured session back into a scenario. Heartbeat
// updates are part of the recording, so no beat spans are added.
func FromRecords(name string, recs []capture.Record) Scenario {
	sc := Scenario{Name: name, Events: make([]Event, 0, len(recs))}
	for _, r := range recs {
		sc.Events = append(sc.Events, Event{At: r.At, Field: r.Field, Value: r.Value})
	}
	return sc
}

// Player publishes a scenario as retained telemetry. It is driven by the
// caller's clock through Step.
type Player struct {
	conn   *bus.Connection
	events []Event
	beats  []Span
	every  time.Duration

	next     int
	counter  uint16
	nextBeat time.Duration
	beating  bool
	sent     int
}

func NewPlayer(conn *bus.Connection, sc Scenario) *Player {
	evs := append([]Event(nil), sc.Events...)
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].At < evs[j].At })
	every := sc.BeatEvery
	if every == 0 {
		every = DefaultBeatEvery
	}
	return &Player{conn: conn, events: evs, beats: sc.Beats, every: every}
}

// Step publishes every event due at now and, inside a beat span, at most one
// heartbeat increment. It returns the number of messages published.
func (p *Player) Step(now time.Duration) int {
	n := 0
	for p.next < len(p.events) && p.events[p.next].At <= now {
		e := p.events[p.next]
		p.publish(telemetry.Field(e.Field), e.Value)
		p.next++
		n++
	}

	in := false
	for _, s := range p.beats {
		if s.contains(now) {
			in = true
			break
		}
	}
	switch {
	case !in:
		p.beating = false
	case !p.beating || now >= p.nextBeat:
		p.beating = true
		p.counter = (p.counter + 1) & 0x00ff
		p.nextBeat = now + p.every
		p.publish(telemetry.FieldHeartbeat, p.counter)
		n++
	}
	return n
}

func (p *Player) publish(f telemetry.Field, v any) {
	p.conn.Publish(p.conn.NewMessage(telemetry.Topic(f), v, true))
	p.sent++
}

// Done reports whether every scripted event has been published.
func (p *Player) Done() bool { return p.next >= len(p.events) }

// Sent is the total number of messages published.
func (p *Player) Sent() int { return p.sent }

// Default is a short flight: cold start, engines up, takeoff and climb, a
// pause in the menu during which the aircraft is reset onto the ramp, and
// quitting to the main screen.
func Default() Scenario {
	const ac = "FA-18C_hornet"
	sec := func(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
	ev := func(at float64, f telemetry.Field, v any) Event {
		return Event{At: sec(at), Field: string(f), Value: v}
	}
	radalt := telemetry.Field("RADALT_ALT_PTR")
	brake := telemetry.Field("HYD_IND_BRAKE")

	return Scenario{
		Name:      "default",
		BeatEvery: DefaultBeatEvery,
		Beats: []Span{
			{From: 0, To: sec(40)},
			{From: sec(55), To: sec(60)},
		},
		Events: []Event{
			ev(0, telemetry.FieldAircraft, ac),
			ev(0, telemetry.FieldWOWLeft, 1),
			ev(0, telemetry.FieldWOWRight, 1),
			ev(0, telemetry.FieldRPMLeft, "  0"),
			ev(0, telemetry.FieldRPMRight, "  0"),
			ev(0, brake, 52000),
			ev(5, telemetry.FieldRPMLeft, " 65"),
			ev(8, telemetry.FieldRPMRight, " 66"),
			ev(12, brake, 30000),
			ev(15, telemetry.FieldWOWLeft, 0),
			ev(15, telemetry.FieldWOWRight, 0),
			ev(16, radalt, 8000),
			ev(20, radalt, 24000),
			ev(25, radalt, 41000),
			ev(30, radalt, 65535),
			ev(35, radalt, 30000),
			ev(52, telemetry.FieldWOWLeft, 1),
			ev(52, telemetry.FieldWOWRight, 1),
			ev(52, radalt, 0),
			ev(58, telemetry.FieldRPMLeft, "  0"),
			ev(58, telemetry.FieldRPMRight, "  0"),
			ev(60, telemetry.FieldAircraft, ""),
		},
	}
}
