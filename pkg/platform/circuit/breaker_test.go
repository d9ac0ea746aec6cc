package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeNow struct{ t time.Time }

func (f *fakeNow) now() time.Time          { return f.t }
func (f *fakeNow) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("backend", WithFailureThreshold(3))

	assert.Equal(t, StateChange{}, b.RecordFailure())
	assert.Equal(t, StateChange{}, b.RecordFailure())
	assert.Equal(t, StateChange{Opened: true}, b.RecordFailure())
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New("backend", WithFailureThreshold(2))
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	clock := &fakeNow{t: time.Unix(1_700_000_000, 0)}
	b := New("backend", WithFailureThreshold(1), WithCooldown(time.Second), WithClock(clock.now))

	b.RecordFailure()
	assert.False(t, b.Allow())

	clock.advance(time.Second)
	assert.True(t, b.Allow(), "first caller after cool-down is the trial")
	assert.False(t, b.Allow(), "only one trial at a time")
	assert.Equal(t, StateHalfOpen, b.State())

	assert.Equal(t, StateChange{Closed: true}, b.RecordSuccess())
	assert.True(t, b.Allow())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	clock := &fakeNow{t: time.Unix(1_700_000_000, 0)}
	b := New("backend", WithFailureThreshold(1), WithCooldown(time.Second), WithClock(clock.now))

	b.RecordFailure()
	clock.advance(time.Second)
	assert.True(t, b.Allow())
	b.RecordFailure()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	b.Reset()
	assert.True(t, b.Allow())
}

func TestBreaker_ReleaseFreesHalfOpenTrial(t *testing.T) {
	clock := &fakeNow{t: time.Unix(1_700_000_000, 0)}
	b := New("backend", WithFailureThreshold(1), WithCooldown(time.Second), WithClock(clock.now))

	b.RecordFailure()
	clock.advance(time.Second)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())

	b.Release()
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Allow(), "a released trial lets the next caller try")

	b.Reset()
	b.Release()
	assert.Equal(t, StateClosed, b.State())
}
