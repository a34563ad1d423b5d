// Package platform binds gauges and buttons to real or simulated hardware.
// Build tags pick the implementation: rp2040/rp2350 use machine pins, UART
// and tinygo drivers; every other target gets in-memory fakes.
package platform

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"cockpit-go/drivers/gauge"
	"cockpit-go/errcode"
	"cockpit-go/types"
)

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

func ParsePull(s string) Pull {
	switch strings.ToLower(s) {
	case "up":
		return PullUp
	case "down":
		return PullDown
	default:
		return PullNone
	}
}

// GPIOPin is the subset of a machine pin the cockpit needs.
type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// PinFactory resolves board GPIO numbers.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// ActuatorBuilder turns a gauge's wiring into a stepper actuator.
type ActuatorBuilder func(g types.GaugeConfig, pins PinFactory) (gauge.Actuator, error)

var (
	regMu    sync.RWMutex
	builders = map[string]ActuatorBuilder{}
)

// RegisterActuator makes a driver name available to BuildActuator.
// Registering the same name twice panics.
func RegisterActuator(driver string, b ActuatorBuilder) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := builders[driver]; exists {
		panic(fmt.Sprintf("duplicate actuator builder: %s", driver))
	}
	builders[driver] = b
}

func lookupBuilder(driver string) (ActuatorBuilder, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	b, ok := builders[driver]
	return b, ok
}

// Drivers lists the registered driver names, sorted.
func Drivers() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BuildActuator builds the actuator named by g.Driver. An empty driver
// name selects DefaultDriver.
func BuildActuator(g types.GaugeConfig, pins PinFactory) (gauge.Actuator, error) {
	name := g.Driver
	if name == "" {
		name = DefaultDriver
	}
	b, ok := lookupBuilder(name)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownDriver, Op: "platform.BuildActuator", Msg: name}
	}
	a, err := b(g, pins)
	if err != nil {
		return nil, fmt.Errorf("gauge %q: %w", g.Name, err)
	}
	return a, nil
}

// Claims tracks which GPIOs are already wired so two consumers cannot
// share a pin.
type Claims struct {
	mu    sync.Mutex
	owner map[int]string
}

func NewClaims() *Claims { return &Claims{owner: map[int]string{}} }

// Claim reserves pin n for owner. Re-claiming by the same owner is allowed.
func (c *Claims) Claim(owner string, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.owner[n]; ok && cur != owner {
		return &errcode.E{C: errcode.PinInUse, Op: "platform.Claim", Msg: fmt.Sprintf("GP%d held by %s", n, cur)}
	}
	c.owner[n] = owner
	return nil
}

func outputPins(g types.GaugeConfig, pins PinFactory) ([4]GPIOPin, error) {
	var out [4]GPIOPin
	for i, n := range g.Pins {
		p, ok := pins.ByNumber(n)
		if !ok {
			return out, &errcode.E{C: errcode.UnknownPin, Op: "platform.outputPins", Msg: fmt.Sprintf("GP%d", n)}
		}
		if err := p.ConfigureOutput(false); err != nil {
			return out, err
		}
		out[i] = p
	}
	return out, nil
}
