// Package config resolves the cockpit configuration. Firmware builds use
// the embedded per-device YAML; host builds may also Load a file through
// viper (load_host.go), which keeps viper out of the rp2 image.
// The config service publishes each top-level key retained on config/<key>.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"cockpit-go/bus"
	"cockpit-go/drivers/gauge"
	"cockpit-go/errcode"
	"cockpit-go/internal/platform"
	"cockpit-go/internal/platform/boards"
	"cockpit-go/services/simstate"
	"cockpit-go/types"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey struct{}

// CtxDeviceKey is the context key carrying the device ID.
var CtxDeviceKey = ctxKey{}

// WithDevice returns ctx carrying the device ID the service publishes for.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, CtxDeviceKey, device)
}

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Topic returns the retained topic for a top-level config key.
func Topic(key string) bus.Topic { return bus.T(configPrefix, key) }

// ApplyDefaults fills unset fields.
func ApplyDefaults(c *types.CockpitConfig) {
	if c.LoopHz <= 0 {
		c.LoopHz = 1000
	}
	if c.Rehome.ButtonA == "" && c.Rehome.ButtonB == "" {
		c.Rehome.ButtonA, c.Rehome.ButtonB = "UFC_ENT", "UFC_CLR"
	}
	if c.Heartbeat.IntervalS <= 0 {
		c.Heartbeat.IntervalS = 2
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	for i := range c.Buttons {
		if c.Buttons[i].DebounceMs == 0 {
			c.Buttons[i].DebounceMs = 20
		}
	}
}

// Decode parses YAML into a config with defaults applied. It does not
// validate.
func Decode(raw []byte) (types.CockpitConfig, error) {
	var c types.CockpitConfig
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, &errcode.E{C: errcode.InvalidConfig, Op: "config.Decode", Err: err}
	}
	ApplyDefaults(&c)
	return c, nil
}

// Embedded returns the validated built-in config for device.
func Embedded(device string) (types.CockpitConfig, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return types.CockpitConfig{}, &errcode.E{C: errcode.NoConfig, Op: "config.Embedded", Msg: device}
	}
	c, err := Decode(raw)
	if err != nil {
		return c, err
	}
	if c.Device == "" {
		c.Device = device
	}
	return c, Validate(c)
}

// Validate reports every problem that would make the cockpit refuse to
// start, joined into one error.
func Validate(c types.CockpitConfig) error {
	var errs []error
	bad := func(format string, a ...any) {
		errs = append(errs, &errcode.E{C: errcode.InvalidConfig, Op: "config.Validate", Msg: fmt.Sprintf(format, a...)})
	}

	if err := simstate.FromTypes(c.Detector).Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.LoopHz <= 0 {
		bad("loop_hz must be > 0")
	}

	board, knownBoard := boards.ByName(c.Device)
	claims := platform.NewClaims()
	claim := func(owner string, n int) {
		if knownBoard && !board.ValidPin(n) {
			bad("%s: GP%d not on board %s", owner, n, board.Name)
			return
		}
		if err := claims.Claim(owner, n); err != nil {
			errs = append(errs, err)
		}
	}

	names := map[string]bool{}
	for i, g := range c.Gauges {
		if g.Name == "" {
			bad("gauge %d: missing name", i)
			continue
		}
		if names[g.Name] {
			bad("gauge %q: duplicate name", g.Name)
		}
		names[g.Name] = true
		if g.Field == "" {
			bad("gauge %q: missing field", g.Name)
		}
		if err := gauge.FromTypes(g).Validate(); err != nil {
			errs = append(errs, err)
		}
		if g.Driver != "" && g.Driver != "fake" {
			for _, n := range g.Pins {
				claim("gauge:"+g.Name, n)
			}
		}
	}

	for _, b := range c.Buttons {
		if b.Field == "" {
			bad("button on GP%d: missing field", b.Pin)
			continue
		}
		claim("button:"+b.Field, b.Pin)
	}

	if (c.Rehome.ButtonA == "") != (c.Rehome.ButtonB == "") {
		bad("rehome needs both buttons or neither")
	}
	for _, p := range []struct {
		owner string
		cfg   types.ConsoleConfig
	}{{"console", c.Console}, {"link", c.Link}} {
		if !p.cfg.Enabled || !knownBoard || !strings.HasPrefix(p.cfg.Port, "uart") {
			continue
		}
		if !board.HasUART(p.cfg.Port) {
			bad("%s port %s not on board %s", p.owner, p.cfg.Port, board.Name)
			continue
		}
		tx, rx := uartPins(board, p.cfg)
		claim(p.owner+":"+p.cfg.Port, tx)
		claim(p.owner+":"+p.cfg.Port, rx)
	}
	if c.Console.Enabled && c.Link.Enabled && portName(c.Console.Port) == portName(c.Link.Port) {
		bad("console and link both on port %s", portName(c.Link.Port))
	}
	return errors.Join(errs...)
}

// uartPins resolves the TX/RX pins a UART port will use, falling back to
// the board defaults.
func uartPins(b boards.Board, cc types.ConsoleConfig) (tx, rx int) {
	if cc.TX != 0 || cc.RX != 0 {
		return cc.TX, cc.RX
	}
	if cc.Port == "uart1" {
		return b.Defaults.UART1_TX, b.Defaults.UART1_RX
	}
	return b.Defaults.UART0_TX, b.Defaults.UART0_RX
}

func portName(p string) string {
	if p == "" || p == "stdin" {
		return "usb"
	}
	return p
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	Log  zerolog.Logger
}

func NewConfigService(log zerolog.Logger) *ConfigService {
	return &ConfigService{Name: serviceName, Log: log}
}

// publishConfig reads the device config from embedded data and publishes
// each top-level key as a retained message.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errcode.New(errcode.InvalidParams, "config.publish", "missing device ID in context")
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errcode.New(errcode.NoConfig, "config.publish", device)
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.publish", Err: err}
	}
	if m == nil {
		return errcode.New(errcode.InvalidConfig, "config.publish", "embedded config is not a mapping")
	}
	for k, v := range m {
		conn.Publish(conn.NewMessage(Topic(k), v, true))
	}
	s.Log.Debug().Str("device", device).Int("keys", len(m)).Msg("config published")
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			s.Log.Error().Err(err).Msg("config publish failed")
		}
	}()
}
