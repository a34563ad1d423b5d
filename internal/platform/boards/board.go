package boards

// Board describes what the controller can do. Wiring choices belong in
// the cockpit config, not here.
type Board struct {
	Name             string
	GPIOMin, GPIOMax int
	LED              int // onboard LED, -1 if none
	UART             []string

	Defaults struct {
		UART0_TX, UART0_RX int
		UART1_TX, UART1_RX int
	}
}

// ValidPin reports whether n is a usable GPIO on the board.
func (b Board) ValidPin(n int) bool { return n >= b.GPIOMin && n <= b.GPIOMax }

// HasUART reports whether the board exposes the named UART.
func (b Board) HasUART(id string) bool {
	for _, u := range b.UART {
		if u == id {
			return true
		}
	}
	return false
}

var Pico = func() Board {
	b := Board{Name: "pico", GPIOMin: 0, GPIOMax: 28, LED: 25, UART: []string{"uart0", "uart1"}}
	b.Defaults.UART0_TX, b.Defaults.UART0_RX = 0, 1
	b.Defaults.UART1_TX, b.Defaults.UART1_RX = 4, 5
	return b
}()

// Bench is the simulated host board: generous pin range, stdin console.
var Bench = Board{Name: "bench", GPIOMin: 0, GPIOMax: 63, LED: -1}

// ByName returns a known board descriptor.
func ByName(name string) (Board, bool) {
	switch name {
	case Pico.Name, "pico2":
		return Pico, true
	case Bench.Name:
		return Bench, true
	}
	return Board{}, false
}
