package config

// Embedded cockpit configuration per device ID, decoded with yaml.v3.
// Keys are the values platform.DeviceID takes on each target.

const cfgPico = `
device: pico
loop_hz: 1000
detector:
  paused_timeout_ms: 10000
  exited_timeout_ms: 1800000
  hot_threshold: 50
gauges:
  - name: radalt
    field: RADALT_ALT_PTR
    driver: coils4
    pins: [2, 3, 4, 5]
    dial_zero: 20
    max_pos: 630
    direction: 1
    cap: 65535
    speed: 300
    accel: 600
    home_on_boot: true
    test_on_boot: true
    map:
      - {value: 0, position: 20}
      - {value: 16384, position: 190}
      - {value: 32768, position: 330}
      - {value: 49152, position: 480}
      - {value: 65535, position: 630}
  - name: hyd_brake
    field: HYD_IND_BRAKE
    driver: coils4
    pins: [6, 7, 8, 9]
    dial_zero: 10
    max_pos: 400
    direction: -1
    cap: 65535
    home_on_boot: true
rehome:
  button_a: UFC_ENT
  button_b: UFC_CLR
heartbeat:
  interval: 5
console:
  enabled: true
  port: usb
link:
  enabled: true
  port: uart0
  baud: 115200
log:
  level: info
`

const cfgBench = `
device: bench
loop_hz: 1000
detector:
  paused_timeout_ms: 10000
  exited_timeout_ms: 1800000
  hot_threshold: 50
gauges:
  - name: radalt
    field: RADALT_ALT_PTR
    driver: fake
    dial_zero: 20
    max_pos: 630
    direction: 1
    cap: 65535
    map:
      - {value: 0, position: 20}
      - {value: 16384, position: 190}
      - {value: 32768, position: 330}
      - {value: 49152, position: 480}
      - {value: 65535, position: 630}
  - name: hyd_brake
    field: HYD_IND_BRAKE
    driver: fake
    dial_zero: 10
    max_pos: 400
    direction: -1
    cap: 65535
rehome:
  button_a: UFC_ENT
  button_b: UFC_CLR
heartbeat:
  interval: 2
console:
  enabled: false
link:
  enabled: false
log:
  level: info
`

var embeddedConfigs = map[string][]byte{
	"pico":  []byte(cfgPico),
	"bench": []byte(cfgBench),
}
