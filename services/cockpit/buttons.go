package cockpit

import (
	"time"

	"cockpit-go/internal/platform"
	"cockpit-go/services/telemetry"
	"cockpit-go/types"
)

// button mirrors a local GPIO input into the telemetry cache as 0/1, so
// cockpit switches can drive the same logic as simulator fields.
type button struct {
	field    telemetry.Field
	pin      platform.GPIOPin
	invert   bool
	debounce time.Duration

	stable  bool
	pending bool
	since   time.Duration
}

func newButton(c types.ButtonConfig, pin platform.GPIOPin) (*button, error) {
	if err := pin.ConfigureInput(platform.ParsePull(c.Pull)); err != nil {
		return nil, err
	}
	b := &button{
		field:    telemetry.Field(c.Field),
		pin:      pin,
		invert:   c.Invert,
		debounce: time.Duration(c.DebounceMs) * time.Millisecond,
	}
	b.stable = b.read()
	b.pending = b.stable
	return b, nil
}

func (b *button) read() bool {
	if b.invert {
		return !b.pin.Get()
	}
	return b.pin.Get()
}

// poll samples the pin and reports a debounced change.
func (b *button) poll(now time.Duration) (pressed, changed bool) {
	lvl := b.read()
	if lvl != b.pending {
		b.pending = lvl
		b.since = now
	}
	if b.pending != b.stable && now-b.since >= b.debounce {
		b.stable = b.pending
		return b.stable, true
	}
	return b.stable, false
}
