//go:build !rp2040 && !rp2350

package config

import (
	"bytes"
	"strings"

	"github.com/spf13/viper"

	"cockpit-go/errcode"
	"cockpit-go/types"
)

const envPrefix = "COCKPIT"

// Load reads path (any format viper understands) on top of the embedded
// config for device, then applies COCKPIT_* environment overrides such as
// COCKPIT_LOG_LEVEL or COCKPIT_LOOP_HZ. An empty path uses the embedded
// config alone.
func Load(path, device string) (types.CockpitConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if raw, ok := EmbeddedConfigLookup(device); ok {
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
			return types.CockpitConfig{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.Load", Msg: "embedded " + device, Err: err}
		}
	} else if path == "" {
		return types.CockpitConfig{}, &errcode.E{C: errcode.NoConfig, Op: "config.Load", Msg: device}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return types.CockpitConfig{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.Load", Msg: path, Err: err}
		}
	}
	// AutomaticEnv only applies to keys viper already knows.
	for _, k := range []string{"device", "loop_hz", "log.level", "heartbeat.interval",
		"detector.paused_timeout_ms", "detector.exited_timeout_ms", "detector.hot_threshold"} {
		_ = v.BindEnv(k)
	}

	var c types.CockpitConfig
	if err := v.Unmarshal(&c); err != nil {
		return c, &errcode.E{C: errcode.InvalidConfig, Op: "config.Load", Err: err}
	}
	if c.Device == "" {
		c.Device = device
	}
	ApplyDefaults(&c)
	return c, Validate(c)
}
