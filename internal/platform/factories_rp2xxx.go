//go:build rp2040 || rp2350

package platform

import (
	"context"
	"io"
	"machine"
	"os"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/easystepper"

	"cockpit-go/drivers/gauge"
	"cockpit-go/errcode"
	"cockpit-go/internal/platform/boards"
	"cockpit-go/types"
)

const DefaultDriver = "coils4"

const DeviceID = "pico"

// DefaultPinFactory maps logical numbers directly to machine.Pin(n),
// matching Pico GP numbering.
func DefaultPinFactory() PinFactory { return rp2PinFactory{} }

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (GPIOPin, bool) {
	if !boards.Pico.ValidPin(n) {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull Pull) error {
	var mode machine.PinMode
	switch pull {
	case PullUp:
		mode = machine.PinInputPullup
	case PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Number() int    { return r.n }

// easyStepper adapts the tinygo easystepper driver. Move(±1) sleeps one
// step delay, so RPM is chosen to keep that delay near 1 ms.
type easyStepper struct{ d *easystepper.Device }

func (e easyStepper) Step(dir int8) { e.d.Move(int32(dir)) }

const defaultStepsPerRev = 720

func init() {
	RegisterActuator("easystepper", func(g types.GaugeConfig, pins PinFactory) (gauge.Actuator, error) {
		var mp [4]machine.Pin
		for i, n := range g.Pins {
			if _, ok := pins.ByNumber(n); !ok {
				return nil, &errcode.E{C: errcode.UnknownPin, Op: "platform.easystepper", Msg: g.Name}
			}
			mp[i] = machine.Pin(n)
		}
		spr := g.StepsRev
		if spr == 0 {
			spr = defaultStepsPerRev
		}
		rpm := (60_000 + spr - 1) / spr
		d, err := easystepper.New(easystepper.DeviceConfig{
			Pin1: mp[0], Pin2: mp[1], Pin3: mp[2], Pin4: mp[3],
			StepCount: spr,
			RPM:       rpm,
			Mode:      easystepper.ModeFour,
		})
		if err != nil {
			return nil, err
		}
		d.Configure()
		return easyStepper{d: d}, nil
	})
}

// uartPort adapts uartx to io.ReadWriter; reads block until data arrives.
type uartPort struct{ u *uartx.UART }

func (p uartPort) Write(b []byte) (int, error) { return p.u.Write(b) }
func (p uartPort) Read(b []byte) (int, error) {
	return p.u.RecvSomeContext(context.Background(), b)
}

// Console opens the configured UART, or USB serial via stdio when the port
// is empty or "usb".
func Console(cfg types.ConsoleConfig) (io.ReadWriter, error) {
	var hw *uartx.UART
	tx, rx := cfg.TX, cfg.RX
	switch cfg.Port {
	case "", "usb", "stdin":
		return usbPort{}, nil
	case "uart0":
		hw = uartx.UART0
		if tx == 0 && rx == 0 {
			tx, rx = boards.Pico.Defaults.UART0_TX, boards.Pico.Defaults.UART0_RX
		}
	case "uart1":
		hw = uartx.UART1
		if tx == 0 && rx == 0 {
			tx, rx = boards.Pico.Defaults.UART1_TX, boards.Pico.Defaults.UART1_RX
		}
	default:
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "platform.Console", Msg: "unknown port " + cfg.Port}
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = 115200
	}
	if err := hw.Configure(uartx.UARTConfig{BaudRate: baud, TX: machine.Pin(tx), RX: machine.Pin(rx)}); err != nil {
		return nil, err
	}
	return uartPort{u: hw}, nil
}

type usbPort struct{}

func (usbPort) Read(b []byte) (int, error)  { return os.Stdin.Read(b) }
func (usbPort) Write(b []byte) (int, error) { return os.Stdout.Write(b) }

// Output is the USB serial console.
func Output() io.Writer { return os.Stdout }
