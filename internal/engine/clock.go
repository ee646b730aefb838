package engine

import "time"

// Clock supplies the timestamps written to task and event rows. Injected
// so tests can pin time.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func NewRealClock() Clock { return RealClock{} }

func (RealClock) Now() time.Time { return time.Now() }
