package mathx

import "testing"

func TestMapClampsAndTruncates(t *testing.T) {
	cases := []struct {
		x, want int64
	}{
		{0, 20},
		{65535, 720},
		{70000, 720},
		{-5, 20},
		{32767, 369}, // 20 + 700*32767/65535 = 369.99 -> 369
	}
	for _, c := range cases {
		if got := Map(c.x, 0, 65535, 20, 720); got != c.want {
			t.Fatalf("Map(%d) = %d, want %d", c.x, got, c.want)
		}
	}
	if got := Map(5, 3, 3, 7, 9); got != 7 {
		t.Fatalf("degenerate input range should give outMin, got %d", got)
	}
}

func TestInterp(t *testing.T) {
	pts := []Point{{0, 20}, {1000, 120}, {5000, 320}, {65535, 720}}
	cases := []struct {
		x, want int64
	}{
		{0, 20},
		{1000, 120},
		{5000, 320},
		{65535, 720},
		{500, 70},
		{3000, 220},
		{-1, 20},
		{70000, 720},
	}
	for _, c := range cases {
		if got := Interp(c.x, pts); got != c.want {
			t.Fatalf("Interp(%d) = %d, want %d", c.x, got, c.want)
		}
	}
	if Interp(3, nil) != 0 {
		t.Fatal("empty table should yield 0")
	}
}

func TestInterpDescendingOutputs(t *testing.T) {
	pts := []Point{{0, 500}, {100, 100}}
	if got := Interp(50, pts); got != 300 {
		t.Fatalf("Interp = %d, want 300", got)
	}
}

func TestClampSignAbs(t *testing.T) {
	if Clamp(5, 10, 0) != 5 || Clamp(-1, 0, 10) != 0 || Clamp(11, 0, 10) != 10 {
		t.Fatal("Clamp bounds")
	}
	if Sign(-7) != -1 || Sign(0) != 0 || Sign(int32(9)) != 1 || Sign(int32(-600)) != -1 {
		t.Fatal("Sign")
	}
	if Abs(int8(-3)) != 3 || Abs(int32(580)) != 580 {
		t.Fatal("Abs")
	}
}
