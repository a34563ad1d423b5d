//go:build !rp2040 && !rp2350

package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cockpit-go/drivers/stepper"
	"cockpit-go/errcode"
	"cockpit-go/types"
)

func TestBuildCoils4DrivesPins(t *testing.T) {
	pins := &HostPinFactory{}
	a, err := BuildActuator(types.GaugeConfig{Name: "radalt", Driver: "coils4", Pins: [4]int{2, 3, 4, 5}}, pins)
	require.NoError(t, err)
	require.IsType(t, &stepper.Device{}, a)

	a.Step(1)
	p2, _ := pins.Get(2)
	p3, _ := pins.Get(3)
	p4, _ := pins.Get(4)
	p5, _ := pins.Get(5)
	assert.True(t, p2.IsOutput())
	assert.Equal(t, []bool{false, true, true, false}, []bool{p2.Get(), p3.Get(), p4.Get(), p5.Get()})
}

func TestDefaultDriverIsFakeOnHost(t *testing.T) {
	a, err := BuildActuator(types.GaugeConfig{Name: "rpm"}, DefaultPinFactory())
	require.NoError(t, err)
	fs, ok := a.(*FakeStepper)
	require.True(t, ok)
	fs.Step(1)
	fs.Step(1)
	fs.Step(-1)
	assert.Equal(t, int64(1), fs.Position())
	assert.Equal(t, uint64(3), fs.Steps())
}

func TestUnknownDriver(t *testing.T) {
	_, err := BuildActuator(types.GaugeConfig{Name: "x", Driver: "x27-magic"}, DefaultPinFactory())
	assert.Equal(t, errcode.UnknownDriver, errcode.Of(err))
}

func TestUnknownPin(t *testing.T) {
	_, err := BuildActuator(types.GaugeConfig{Name: "x", Driver: "coils4", Pins: [4]int{1, 2, 3, -1}}, DefaultPinFactory())
	assert.True(t, errors.Is(err, errcode.UnknownPin))
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	assert.Panics(t, func() { RegisterActuator("coils4", nil) })
	assert.Equal(t, []string{"coils4", "fake"}, Drivers())
}

func TestClaims(t *testing.T) {
	c := NewClaims()
	require.NoError(t, c.Claim("radalt", 2))
	require.NoError(t, c.Claim("radalt", 2))
	err := c.Claim("button:UFC_ENT", 2)
	assert.Equal(t, errcode.PinInUse, errcode.Of(err))
	assert.Contains(t, err.Error(), "GP2 held by radalt")
}

func TestFakePinPullUp(t *testing.T) {
	p, _ := DefaultPinFactory().ByNumber(9)
	require.NoError(t, p.ConfigureInput(ParsePull("up")))
	assert.True(t, p.Get())
	assert.Equal(t, PullNone, ParsePull("sideways"))
}
