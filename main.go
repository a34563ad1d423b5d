// Firmware entry point: loads the embedded board config, homes the gauges
// and runs the cockpit loop until reset.
package main

import (
	"context"
	"io"
	"time"

	"cockpit-go/bus"
	"cockpit-go/internal/logging"
	"cockpit-go/internal/platform"
	"cockpit-go/services/cockpit"
	"cockpit-go/services/config"
	"cockpit-go/services/console"
	"cockpit-go/services/heartbeat"
	"cockpit-go/services/link"
	"cockpit-go/types"
	"cockpit-go/x/timex"
)

// Ports stay open for the life of the firmware; Close is a no-op.
type port struct{ io.ReadWriter }

func (port) Close() error { return nil }

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	cfg, err := config.Embedded(platform.DeviceID)
	log := logging.New(platform.Output(), cfg.Log.Level).With().Str("device", platform.DeviceID).Logger()
	if err != nil {
		log.Error().Err(err).Msg("config rejected; halting")
		select {}
	}

	ctx := config.WithDevice(context.Background(), platform.DeviceID)
	ctx = logging.WithContext(ctx, log)

	b := bus.NewBus(64)

	config.NewConfigService(logging.Component(log, "config")).Start(ctx, b.NewConnection("config"))
	if err := heartbeat.New(log).Start(ctx, b.NewConnection("heartbeat")); err != nil {
		log.Error().Err(err).Msg("heartbeat start failed")
	}

	link.Dial = func(_ context.Context, cc types.ConsoleConfig) (io.ReadWriteCloser, error) {
		rw, err := platform.Console(cc)
		if err != nil {
			return nil, err
		}
		return port{rw}, nil
	}
	link.Start(ctx, b.NewConnection("link"), logging.Component(log, "link"))

	svc, err := cockpit.New(b.NewConnection("cockpit"), cfg, cockpit.Options{
		Clock: timex.System(),
		Pins:  platform.DefaultPinFactory(),
		Log:   log,
	})
	if err != nil {
		log.Error().Err(err).Msg("cockpit init failed; halting")
		select {}
	}

	if cfg.Console.Enabled {
		port, err := platform.Console(cfg.Console)
		if err != nil {
			log.Error().Err(err).Msg("console unavailable")
		} else {
			con := console.New(b.NewConnection("console"), port, log)
			go func() {
				if err := con.Run(ctx, port); err != nil {
					log.Warn().Err(err).Msg("console stopped")
				}
			}()
		}
	}

	log.Info().Int("gauges", len(cfg.Gauges)).Msg("calibrating")
	svc.Calibrate()

	if err := svc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("cockpit loop exited")
	}
}
