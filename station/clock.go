package station

import "time"

// Clock abstracts time for the simulators so tests can fast-forward
// deferred firmware starts, trigger delays and drain polling.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	AfterFunc(d time.Duration, fn func())
}

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (systemClock) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
