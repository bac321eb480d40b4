package lockout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFailuresLockAtThreshold(t *testing.T) {
	p := DefaultPolicy()
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	var c Counters
	for i := 1; i < p.Threshold; i++ {
		c = p.Apply(c, LoginFailed, now)
		require.Equal(t, i, c.FailedAttempts)
		require.Equal(t, Normal, c.State(now))
		require.Nil(t, c.LockedUntil)
	}

	before := c
	c = p.Apply(c, LoginFailed, now)
	require.Equal(t, p.Threshold, c.FailedAttempts)
	require.Equal(t, Locked, c.State(now))
	require.Equal(t, now.Add(30*time.Minute), *c.LockedUntil)
	require.True(t, JustLocked(before, c, now))
}

func TestLockElapsesLazily(t *testing.T) {
	p := DefaultPolicy()
	now := time.Now()
	until := now.Add(-time.Second)

	c := Counters{FailedAttempts: 5, LockedUntil: &until}
	require.Equal(t, Normal, c.State(now))

	c = p.Apply(c, LoginSucceeded, now)
	require.Equal(t, Counters{}, c)
}

func TestFailureAfterElapsedLockRelocks(t *testing.T) {
	p := DefaultPolicy()
	now := time.Now()
	until := now.Add(-time.Minute)

	c := p.Apply(Counters{FailedAttempts: 5, LockedUntil: &until}, LoginFailed, now)
	require.Equal(t, 6, c.FailedAttempts)
	require.Equal(t, Locked, c.State(now))
}

func TestSuccessResetsEverything(t *testing.T) {
	p := DefaultPolicy()
	now := time.Now()
	until := now.Add(10 * time.Minute)

	c := p.Apply(Counters{FailedAttempts: 3, LockedUntil: &until}, LoginSucceeded, now)
	require.Zero(t, c.FailedAttempts)
	require.Nil(t, c.LockedUntil)
	require.Equal(t, Normal, c.State(now))
}

func TestFailureWhileLockedDoesNotReportNewLock(t *testing.T) {
	p := Policy{Threshold: 2, Duration: time.Minute}
	now := time.Now()

	locked := p.Apply(p.Apply(Counters{}, LoginFailed, now), LoginFailed, now)
	again := p.Apply(locked, LoginFailed, now.Add(time.Second))
	require.False(t, JustLocked(locked, again, now.Add(time.Second)))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "normal", Normal.String())
	require.Equal(t, "locked", Locked.String())
}
