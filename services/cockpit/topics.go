package cockpit

import "cockpit-go/bus"

const (
	tokSimstate = "simstate"
	tokGauge    = "gauge"
	tokCockpit  = "cockpit"
	tokControl  = "control"
	tokState    = "state"
	tokValue    = "value"
	tokStatus   = "status"

	VerbHome        = "home"
	VerbTest        = "test"
	VerbRecalibrate = "recalibrate"
)

// TopicState carries the retained types.SimState.
func TopicState() bus.Topic { return bus.T(tokSimstate, tokState) }

// TopicGaugeValue carries the retained types.GaugeValue for one gauge.
func TopicGaugeValue(name string) bus.Topic { return bus.T(tokGauge, name, tokValue) }

// TopicGaugeValues matches every gauge's value topic.
func TopicGaugeValues() bus.Topic { return bus.T(tokGauge, bus.WildOne, tokValue) }

// TopicGaugeControl is the request topic for verb on gauge name.
func TopicGaugeControl(name, verb string) bus.Topic {
	return bus.T(tokGauge, name, tokControl, verb)
}

// TopicStatus answers with types.CockpitStatus.
func TopicStatus() bus.Topic { return bus.T(tokCockpit, tokControl, tokStatus) }
