package timex

import (
	"sync"
	"time"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Clock is a monotonic time source. Now reports the time elapsed since the
// clock was created; Sleep blocks the caller for d.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

type systemClock struct{ start time.Time }

// System returns a Clock backed by the runtime's monotonic clock.
func System() Clock { return systemClock{start: time.Now()} }

func (c systemClock) Now() time.Duration    { return time.Since(c.start) }
func (c systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Fake is a manually driven Clock. Sleep advances virtual time instantly,
// which makes blocking calibration sequences run in zero wall time.
type Fake struct {
	mu    sync.Mutex
	now   time.Duration
	slept time.Duration
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	f.now += d
	f.slept += d
	f.mu.Unlock()
}

// Advance moves virtual time forward without counting as sleep.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}

// Slept reports the total virtual time spent in Sleep.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}
