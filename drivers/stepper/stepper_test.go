package stepper

import "testing"

type pin struct{ high bool }

func (p *pin) Set(high bool) { p.high = high }

func levels(ps [4]*pin) [4]bool {
	return [4]bool{ps[0].high, ps[1].high, ps[2].high, ps[3].high}
}

func TestFullStepSequence(t *testing.T) {
	ps := [4]*pin{{}, {}, {}, {}}
	d := New(ps[0], ps[1], ps[2], ps[3])

	if d.Energised() || levels(ps) != [4]bool{} {
		t.Fatal("new device must start with coils off")
	}

	want := [][4]bool{
		fullStep[1], fullStep[2], fullStep[3], fullStep[0], fullStep[1],
	}
	for i, w := range want {
		d.Step(1)
		if got := levels(ps); got != w {
			t.Fatalf("forward step %d: got %v, want %v", i, got, w)
		}
	}

	d.Step(-1)
	d.Step(-1)
	if d.Phase() != 3 {
		t.Fatalf("phase after reversing: got %d, want 3", d.Phase())
	}
	if got := levels(ps); got != fullStep[3] {
		t.Fatalf("reverse: got %v, want %v", got, fullStep[3])
	}
}

func TestOffKeepsPhase(t *testing.T) {
	ps := [4]*pin{{}, {}, {}, {}}
	d := New(ps[0], ps[1], ps[2], ps[3])
	d.Step(1)
	d.Off()
	if levels(ps) != [4]bool{} || d.Energised() {
		t.Fatal("Off must drop every coil")
	}
	d.Hold()
	if levels(ps) != fullStep[1] {
		t.Fatalf("Hold should re-energise phase 1, got %v", levels(ps))
	}
}

func TestIgnoresInvalidDirection(t *testing.T) {
	ps := [4]*pin{{}, {}, {}, {}}
	d := New(ps[0], ps[1], ps[2], ps[3])
	d.Step(0)
	d.Step(2)
	if d.Phase() != 0 || d.Energised() {
		t.Fatal("invalid directions must be ignored")
	}
}
