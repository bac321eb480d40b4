// Package lockout implements the per-account failed-login state machine.
//
// A record is Locked while LockedUntil lies in the future and Normal
// otherwise; an elapsed lock needs no cleanup because the check is evaluated
// whenever a login is attempted.
package lockout

import "time"

const (
	DefaultThreshold = 5
	DefaultDuration  = 30 * time.Minute
)

type Policy struct {
	Threshold int
	Duration  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, Duration: DefaultDuration}
}

type State int

const (
	Normal State = iota
	Locked
)

func (s State) String() string {
	if s == Locked {
		return "locked"
	}
	return "normal"
}

type Event int

const (
	LoginSucceeded Event = iota
	LoginFailed
)

// Counters are the persisted lockout fields of a credential record.
type Counters struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

func (c Counters) State(now time.Time) State {
	if c.LockedUntil != nil && c.LockedUntil.After(now) {
		return Locked
	}
	return Normal
}

// Apply returns the counters after ev at now. Failures keep counting after a
// lock has elapsed, so the first failure past expiry locks again.
func (p Policy) Apply(c Counters, ev Event, now time.Time) Counters {
	switch ev {
	case LoginSucceeded:
		return Counters{}
	case LoginFailed:
		next := Counters{FailedAttempts: c.FailedAttempts + 1, LockedUntil: c.LockedUntil}
		if next.FailedAttempts >= p.Threshold {
			until := now.Add(p.Duration)
			next.LockedUntil = &until
		}
		return next
	default:
		return c
	}
}

// JustLocked reports whether the transition from before to after started a
// new lock.
func JustLocked(before, after Counters, now time.Time) bool {
	return before.State(now) == Normal && after.State(now) == Locked
}
