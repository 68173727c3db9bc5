package clock

import "time"

// Clock is the source of "now" for every time-dependent rule.
type Clock interface {
	Now() time.Time
}

type system struct{}

// System returns the wall clock.
func System() Clock { return system{} }

func (system) Now() time.Time { return time.Now() }

// Fixed is a Clock frozen at a given instant. Tests move it with Set/Advance.
type Fixed struct {
	t time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

func (f *Fixed) Now() time.Time { return f.t }

func (f *Fixed) Set(t time.Time) { f.t = t }

func (f *Fixed) Advance(d time.Duration) { f.t = f.t.Add(d) }
