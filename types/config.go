package types

// Cockpit configuration. Embedded per-board YAML and bench config files
// both decode into CockpitConfig; keys are snake_case everywhere.

type CockpitConfig struct {
	Device    string          `yaml:"device" json:"device" mapstructure:"device"`
	LoopHz    int             `yaml:"loop_hz" json:"loop_hz" mapstructure:"loop_hz"`
	Detector  DetectorConfig  `yaml:"detector" json:"detector" mapstructure:"detector"`
	Gauges    []GaugeConfig   `yaml:"gauges" json:"gauges" mapstructure:"gauges"`
	Rehome    RehomeConfig    `yaml:"rehome" json:"rehome" mapstructure:"rehome"`
	Buttons   []ButtonConfig  `yaml:"buttons,omitempty" json:"buttons,omitempty" mapstructure:"buttons"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat" json:"heartbeat" mapstructure:"heartbeat"`
	Console   ConsoleConfig   `yaml:"console" json:"console" mapstructure:"console"`
	Link      ConsoleConfig   `yaml:"link" json:"link" mapstructure:"link"`
	Log       LogConfig       `yaml:"log" json:"log" mapstructure:"log"`
}

// DetectorConfig tunes the simulator state detector. Zero timeouts and an
// absent hot_threshold take the defaults (10 s, 1800 s, 50 %); an explicit
// hot_threshold of 0 is kept.
type DetectorConfig struct {
	PausedTimeoutMs uint32 `yaml:"paused_timeout_ms" json:"paused_timeout_ms" mapstructure:"paused_timeout_ms"`
	ExitedTimeoutMs uint32 `yaml:"exited_timeout_ms" json:"exited_timeout_ms" mapstructure:"exited_timeout_ms"`
	HotThreshold    *int   `yaml:"hot_threshold" json:"hot_threshold" mapstructure:"hot_threshold"`
}

// GaugeConfig describes one stepper gauge and the telemetry field that
// drives it. Positions are steps from the low mechanical stop.
type GaugeConfig struct {
	Name       string     `yaml:"name" json:"name" mapstructure:"name"`
	Field      string     `yaml:"field" json:"field" mapstructure:"field"`
	Driver     string     `yaml:"driver" json:"driver" mapstructure:"driver"` // "coils4", "easystepper", "fake"
	Pins       [4]int     `yaml:"pins" json:"pins" mapstructure:"pins"`
	StepsRev   uint       `yaml:"steps_per_rev,omitempty" json:"steps_per_rev,omitempty" mapstructure:"steps_per_rev"`
	DialZero   int32      `yaml:"dial_zero" json:"dial_zero" mapstructure:"dial_zero"`
	MaxPos     int32      `yaml:"max_pos" json:"max_pos" mapstructure:"max_pos"`
	Direction  int8       `yaml:"direction" json:"direction" mapstructure:"direction"`
	Cap        uint16     `yaml:"cap" json:"cap" mapstructure:"cap"`
	Speed      float64    `yaml:"speed,omitempty" json:"speed,omitempty" mapstructure:"speed"`
	Accel      float64    `yaml:"accel,omitempty" json:"accel,omitempty" mapstructure:"accel"`
	Map        []MapPoint `yaml:"map,omitempty" json:"map,omitempty" mapstructure:"map"`
	HomeOnBoot bool       `yaml:"home_on_boot" json:"home_on_boot" mapstructure:"home_on_boot"`
	TestOnBoot bool       `yaml:"test_on_boot" json:"test_on_boot" mapstructure:"test_on_boot"`
}

// MapPoint pairs a raw telemetry value with a step position.
type MapPoint struct {
	Value    uint16 `yaml:"value" json:"value" mapstructure:"value"`
	Position int32  `yaml:"position" json:"position" mapstructure:"position"`
}

// RehomeConfig names the two discrete inputs that, pressed together,
// re-home every gauge.
type RehomeConfig struct {
	ButtonA string `yaml:"button_a" json:"button_a" mapstructure:"button_a"`
	ButtonB string `yaml:"button_b" json:"button_b" mapstructure:"button_b"`
}

// ButtonConfig maps a local GPIO input onto a telemetry field (0/1).
type ButtonConfig struct {
	Field      string `yaml:"field" json:"field" mapstructure:"field"`
	Pin        int    `yaml:"pin" json:"pin" mapstructure:"pin"`
	Pull       string `yaml:"pull" json:"pull" mapstructure:"pull"` // "none","up","down"
	Invert     bool   `yaml:"invert" json:"invert" mapstructure:"invert"`
	DebounceMs uint16 `yaml:"debounce_ms" json:"debounce_ms" mapstructure:"debounce_ms"`
}

type HeartbeatConfig struct {
	IntervalS float64 `yaml:"interval" json:"interval" mapstructure:"interval"`
}

// ConsoleConfig selects a serial port. The operator console and the
// companion telemetry link both use it.
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Port    string `yaml:"port,omitempty" json:"port,omitempty" mapstructure:"port"` // "uart0","uart1","stdin"
	Baud    uint32 `yaml:"baud,omitempty" json:"baud,omitempty" mapstructure:"baud"`
	TX      int    `yaml:"tx,omitempty" json:"tx,omitempty" mapstructure:"tx"`
	RX      int    `yaml:"rx,omitempty" json:"rx,omitempty" mapstructure:"rx"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" mapstructure:"level"`
}
