package platform

import (
	"cockpit-go/drivers/gauge"
	"cockpit-go/drivers/stepper"
	"cockpit-go/types"
)

// coils4 drives the four coil lines directly from GPIO with the full-step
// sequence. Available on every target.
func init() {
	RegisterActuator("coils4", func(g types.GaugeConfig, pins PinFactory) (gauge.Actuator, error) {
		p, err := outputPins(g, pins)
		if err != nil {
			return nil, err
		}
		return stepper.New(p[0], p[1], p[2], p[3]), nil
	})
}
