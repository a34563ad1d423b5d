package timex

import (
	"testing"
	"time"
)

func TestFakeClock(t *testing.T) {
	c := NewFake()
	if c.Now() != 0 {
		t.Fatalf("new fake clock at %v", c.Now())
	}
	c.Advance(10 * time.Millisecond)
	c.Sleep(2 * time.Second)
	c.Sleep(-time.Second)

	if got, want := c.Now(), 2*time.Second+10*time.Millisecond; got != want {
		t.Fatalf("Now = %v, want %v", got, want)
	}
	if c.Slept() != 2*time.Second {
		t.Fatalf("Slept = %v", c.Slept())
	}
}

func TestSystemClockMonotonic(t *testing.T) {
	c := System()
	a := c.Now()
	c.Sleep(time.Millisecond)
	if b := c.Now(); b <= a {
		t.Fatalf("clock went backwards: %v then %v", a, b)
	}
}
