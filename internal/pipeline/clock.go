package pipeline

import "github.com/jonboulle/clockwork"

// clock stamps frame-set events so tests can freeze GeneratedAt.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for event stamping. Pass nil to
// reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
