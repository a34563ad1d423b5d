package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"cockpit-go/bus"
	"cockpit-go/internal/capture"
	"cockpit-go/internal/platform"
	"cockpit-go/services/cockpit"
	"cockpit-go/services/simfeed"
	"cockpit-go/services/telemetry"
	"cockpit-go/types"
	"cockpit-go/x/timex"
)

type harnessOptions struct {
	Realtime  bool
	Calibrate bool
	Tail      time.Duration // keep cycling after the scenario ends
	Out       io.Writer
	Color     bool

	// Store and Session, when set, receive every telemetry update.
	Store   *capture.Store
	Session string
}

type transition struct {
	At    time.Duration
	State string
}

type harnessResult struct {
	Transitions []transition
	Status      types.CockpitStatus
	Cycles      uint64
	Recorded    int
	Elapsed     time.Duration
}

// runHarness plays sc into a fresh cockpit until the scenario and the tail
// have elapsed or ctx is cancelled.
func runHarness(ctx context.Context, cfg types.CockpitConfig, sc simfeed.Scenario, log zerolog.Logger, o harnessOptions) (harnessResult, error) {
	var res harnessResult

	var clk timex.Clock
	fake := timex.NewFake()
	clk = fake
	if o.Realtime {
		clk = timex.System()
	}

	b := bus.NewBus(64)
	svc, err := cockpit.New(b.NewConnection("cockpit"), cfg, cockpit.Options{
		Clock: clk,
		Pins:  platform.DefaultPinFactory(),
		Log:   log,
	})
	if err != nil {
		return res, err
	}
	defer svc.Close()

	mon := b.NewConnection("bench")
	stateSub := mon.Subscribe(cockpit.TopicState())
	defer mon.Unsubscribe(stateSub)
	var telSub *bus.Subscription
	if o.Store != nil {
		telSub = mon.Subscribe(telemetry.TopicAll())
		defer mon.Unsubscribe(telSub)
	}

	if o.Calibrate {
		svc.Calibrate()
	}

	player := simfeed.NewPlayer(b.NewConnection("simfeed"), sc)
	period := time.Second / time.Duration(max(cfg.LoopHz, 1))
	start := clk.Now()
	end := sc.End() + o.Tail
	log.Info().Str("scenario", sc.Name).Dur("length", end).Bool("realtime", o.Realtime).Msg("bench run")

	for {
		now := clk.Now() - start
		if now > end {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		player.Step(now)
		svc.Cycle()

		for drained := false; !drained; {
			select {
			case m := <-stateSub.Channel():
				if st, ok := m.Payload.(types.SimState); ok {
					t := transition{At: now, State: st.State}
					res.Transitions = append(res.Transitions, t)
					if o.Out != nil {
						fmt.Fprintln(o.Out, renderTransition(t, o.Color))
					}
				}
			default:
				drained = true
			}
		}
		if telSub != nil {
			n, err := record(ctx, o.Store, o.Session, telSub, now)
			res.Recorded += n
			if err != nil {
				return res, err
			}
		}

		if o.Realtime {
			clk.Sleep(period)
		} else {
			fake.Advance(period)
		}
	}

	res.Status = svc.Status()
	res.Cycles = svc.Cycles()
	res.Elapsed = clk.Now() - start
	return res, nil
}

func record(ctx context.Context, st *capture.Store, session string, sub *bus.Subscription, now time.Duration) (int, error) {
	n := 0
	for {
		select {
		case m := <-sub.Channel():
			field, _ := m.Topic.At(1).(string)
			if field == "" {
				continue
			}
			if err := st.Append(ctx, session, capture.Record{At: now, Field: field, Value: m.Payload}); err != nil {
				return n, err
			}
			n++
		default:
			return n, nil
		}
	}
}
