// Package telemetry holds the latest known value of every subscribed
// simulator field and notifies observers when a field changes.
package telemetry

import (
	"strconv"
	"strings"
	"sync"

	"cockpit-go/bus"
	"cockpit-go/x/strx"
)

// Field identifies a telemetry value by its DCS-BIOS control name.
type Field string

const (
	FieldHeartbeat Field = "_UPDATE_COUNTER"
	FieldAircraft  Field = "_ACFT_NAME"
	FieldRPMLeft   Field = "IFEI_RPM_L"
	FieldRPMRight  Field = "IFEI_RPM_R"
	FieldWOWLeft   Field = "EXT_WOW_LEFT"
	FieldWOWRight  Field = "EXT_WOW_RIGHT"
	FieldUFCEnter  Field = "UFC_ENT"
	FieldUFCClear  Field = "UFC_CLR"
)

// MaxAircraftLen bounds the aircraft label, matching the export buffer.
const MaxAircraftLen = 24

const tokTelemetry = "telemetry"

// Topic returns the bus topic a field's updates travel on.
func Topic(f Field) bus.Topic { return bus.T(tokTelemetry, string(f)) }

// TopicAll matches every field update.
func TopicAll() bus.Topic { return bus.T(tokTelemetry, bus.WildRest) }

// Snapshot is a point-in-time view of the fields the state detector reads.
// Fields are read independently; no cross-field consistency is implied.
type Snapshot struct {
	Heartbeat      uint16
	Aircraft       string
	EnginePercent  [2]int
	WeightOnWheels [2]bool
}

// Cache stores field values as either uint16 or string.
type Cache struct {
	mu     sync.RWMutex
	values map[Field]any
	ints   map[Field][]func(uint16)
	texts  map[Field][]func(string)
}

// NewCache returns a cache holding the conservative defaults: no aircraft,
// engines at 0 %, both gear legs compressed.
func NewCache() *Cache {
	return &Cache{
		values: map[Field]any{
			FieldWOWLeft:  uint16(1),
			FieldWOWRight: uint16(1),
		},
		ints:  map[Field][]func(uint16){},
		texts: map[Field][]func(string){},
	}
}

// OnInt registers fn to run whenever f changes; the value is converted to
// uint16 if it arrived as text.
func (c *Cache) OnInt(f Field, fn func(uint16)) {
	c.mu.Lock()
	c.ints[f] = append(c.ints[f], fn)
	c.mu.Unlock()
}

// OnText registers fn to run whenever f changes.
func (c *Cache) OnText(f Field, fn func(string)) {
	c.mu.Lock()
	c.texts[f] = append(c.texts[f], fn)
	c.mu.Unlock()
}

// Set stores v for f and fires observers if the value changed. Accepted
// payloads are uint16, int, bool and string; anything else is ignored and
// Set reports false.
func (c *Cache) Set(f Field, v any) bool {
	switch x := v.(type) {
	case uint16:
	case int:
		if x < 0 {
			x = 0
		}
		if x > 0xFFFF {
			x = 0xFFFF
		}
		v = uint16(x)
	case bool:
		if x {
			v = uint16(1)
		} else {
			v = uint16(0)
		}
	case string:
		if f == FieldAircraft {
			v = strx.Truncate(x, MaxAircraftLen)
		}
	default:
		return false
	}

	c.mu.Lock()
	old, had := c.values[f]
	if had && old == v {
		c.mu.Unlock()
		return true
	}
	c.values[f] = v
	ints := c.ints[f]
	texts := c.texts[f]
	c.mu.Unlock()

	// Observers run outside the lock so they may read the cache.
	if len(ints) > 0 {
		n := toInt(v)
		for _, fn := range ints {
			fn(n)
		}
	}
	if len(texts) > 0 {
		s := toText(v)
		for _, fn := range texts {
			fn(s)
		}
	}
	return true
}

// Int returns the value of f as uint16; text is parsed as a decimal number.
func (c *Cache) Int(f Field) (uint16, bool) {
	c.mu.RLock()
	v, ok := c.values[f]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return toInt(v), true
}

// Text returns the value of f as a string.
func (c *Cache) Text(f Field) (string, bool) {
	c.mu.RLock()
	v, ok := c.values[f]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	return toText(v), true
}

// Pressed reports whether a discrete input field is non-zero.
func (c *Cache) Pressed(f Field) bool {
	n, _ := c.Int(f)
	return n != 0
}

// Snapshot reads the detector fields. Missing values resolve to defaults.
func (c *Cache) Snapshot() Snapshot {
	var s Snapshot
	s.Heartbeat, _ = c.Int(FieldHeartbeat)
	s.Aircraft, _ = c.Text(FieldAircraft)
	l, _ := c.Int(FieldRPMLeft)
	r, _ := c.Int(FieldRPMRight)
	s.EnginePercent = [2]int{int(l), int(r)}
	s.WeightOnWheels = [2]bool{c.Pressed(FieldWOWLeft), c.Pressed(FieldWOWRight)}
	return s
}

// Drain applies every queued update on sub without blocking and returns
// how many messages were consumed. Messages whose topic is not
// telemetry/<field> or whose payload type is unsupported are skipped.
func (c *Cache) Drain(sub *bus.Subscription) int {
	n := 0
	for {
		select {
		case m, ok := <-sub.Channel():
			if !ok {
				return n
			}
			n++
			if m.Topic.Len() != 2 || m.Topic.At(0) != tokTelemetry {
				continue
			}
			name, _ := m.Topic.At(1).(string)
			if name == "" || m.Payload == nil {
				continue
			}
			c.Set(Field(name), m.Payload)
		default:
			return n
		}
	}
}

func toInt(v any) uint16 {
	switch x := v.(type) {
	case uint16:
		return x
	case string:
		return parseLeadingUint(x)
	}
	return 0
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	}
	return ""
}

// parseLeadingUint behaves like C atoi for the export's right-aligned
// numeric strings: leading blanks are skipped, digits are read until the
// first non-digit, and anything unparsable yields 0.
func parseLeadingUint(s string) uint16 {
	s = strings.TrimLeft(s, " \t")
	var n uint32
	for i := 0; i < len(s); i++ {
		d := s[i]
		if d < '0' || d > '9' {
			break
		}
		n = n*10 + uint32(d-'0')
		if n > 0xFFFF {
			return 0xFFFF
		}
	}
	return uint16(n)
}
