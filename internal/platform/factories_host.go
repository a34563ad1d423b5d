//go:build !rp2040 && !rp2350

package platform

import (
	"io"
	"os"
	"sync"

	"cockpit-go/drivers/gauge"
	"cockpit-go/types"
)

// DefaultDriver is used for gauges whose config names no driver.
const DefaultDriver = "fake"

// DeviceID names the embedded config selected on this target.
const DeviceID = "bench"

// FakePin is an in-memory GPIO for host runs and tests.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	pull    Pull
	writes  int
}

func (p *FakePin) ConfigureInput(pull Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.pull = pull
	if pull == PullUp {
		p.level = true
	}
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.writes++
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Number() int { return p.number }

// IsOutput reports the configured direction.
func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

// Writes counts Set calls.
func (p *FakePin) Writes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.writes
}

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func (f *HostPinFactory) ByNumber(n int) (GPIOPin, bool) {
	if n < 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n}
		f.pins[n] = p
	}
	return p, true
}

// Get exposes the underlying *FakePin so tests can press buttons.
func (f *HostPinFactory) Get(n int) (*FakePin, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	return p, ok
}

func DefaultPinFactory() PinFactory {
	return &HostPinFactory{pins: make(map[int]*FakePin)}
}

// FakeStepper counts steps instead of moving a motor.
type FakeStepper struct {
	mu    sync.Mutex
	pos   int64
	steps uint64
}

func (s *FakeStepper) Step(dir int8) {
	s.mu.Lock()
	s.pos += int64(dir)
	s.steps++
	s.mu.Unlock()
}

// Position is the net physical step count.
func (s *FakeStepper) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *FakeStepper) Steps() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

func init() {
	RegisterActuator("fake", func(types.GaugeConfig, PinFactory) (gauge.Actuator, error) {
		return &FakeStepper{}, nil
	})
}

type stdio struct {
	io.Reader
	io.Writer
}

// Console returns the operator console port. On the host it is the
// process's stdin/stdout regardless of cfg.
func Console(_ types.ConsoleConfig) (io.ReadWriter, error) {
	return stdio{Reader: os.Stdin, Writer: os.Stdout}, nil
}

// Output is where log lines go.
func Output() io.Writer { return os.Stderr }
