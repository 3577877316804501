package debounce

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidDelay is returned when the trigger delay is not positive
	ErrInvalidDelay = errors.New("debounce delay must be positive")
	// ErrNilAction is returned when no action is given
	ErrNilAction = errors.New("debounce action is required")
)

// Trigger runs an action once a quiet period has elapsed since the last Poke.
// At most one scheduling loop is active at a time, so action runs never overlap.
type Trigger struct {
	delay  time.Duration
	action func() error
	logger zerolog.Logger

	epoch    time.Time
	deadline atomic.Int64 // nanoseconds since epoch, fire no earlier than this
	pokes    atomic.Int32 // 0 while no loop is active
	flush    chan struct{}

	runs     atomic.Uint64
	failures atomic.Uint64
}

// New creates a Trigger that runs action delay after the most recent Poke
func New(delay time.Duration, action func() error, logger zerolog.Logger) (*Trigger, error) {
	if delay <= 0 {
		return nil, ErrInvalidDelay
	}
	if action == nil {
		return nil, ErrNilAction
	}

	return &Trigger{
		delay:  delay,
		action: action,
		logger: logger.With().Str("component", "debounce").Logger(),
		epoch:  time.Now(),
		flush:  make(chan struct{}, 1),
	}, nil
}

// Poke pushes the deadline to now+delay and makes sure a loop is running.
// The deadline only ever moves forward.
func (t *Trigger) Poke() {
	t.advance(time.Since(t.epoch) + t.delay)
	t.schedule()
}

// Flush asks the loop to stop waiting and run the action as soon as possible.
// It leaves the deadline untouched.
func (t *Trigger) Flush() {
	select {
	case t.flush <- struct{}{}:
	default:
	}
	t.schedule()
}

// Runs returns how many times the action has been started
func (t *Trigger) Runs() uint64 {
	return t.runs.Load()
}

// Failures returns how many action runs returned an error or panicked
func (t *Trigger) Failures() uint64 {
	return t.failures.Load()
}

// advance ratchets the deadline to desired if it is later than the current one
func (t *Trigger) advance(desired time.Duration) {
	for {
		current := t.deadline.Load()
		if int64(desired) <= current {
			return
		}
		if t.deadline.CompareAndSwap(current, int64(desired)) {
			return
		}
	}
}

// schedule starts a loop unless one is already active.
// Only the caller that moves the counter from 0 to 1 owns the loop.
func (t *Trigger) schedule() {
	if t.pokes.Add(1) == 1 {
		go t.loop()
	}
}

func (t *Trigger) loop() {
	for {
		t.wait()
		t.run()

		// Anything above 1 means pokes arrived while the action was running.
		if t.pokes.Swap(0) == 1 {
			return
		}
		// Re-acquire. A Poke that slipped in after the swap may already own a new loop.
		if t.pokes.Add(1) != 1 {
			return
		}
	}
}

// wait sleeps until the deadline, re-reading it after every sleep since pokes
// may have extended it. A Flush cuts the wait short.
func (t *Trigger) wait() {
	for {
		remaining := time.Duration(t.deadline.Load()) - time.Since(t.epoch)
		if remaining <= 0 {
			return
		}

		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-t.flush:
			// Running now covers every poke made so far.
			timer.Stop()
			t.pokes.Store(1)
			return
		}

		// Pokes seen during the sleep are covered by the deadline they moved.
		t.pokes.Store(1)
	}
}

func (t *Trigger) run() {
	// A pending flush has been honoured by this run.
	select {
	case <-t.flush:
	default:
	}

	t.runs.Add(1)

	defer func() {
		if r := recover(); r != nil {
			t.failures.Add(1)
			t.logger.Error().Interface("panic", r).Msg("debounced action panicked")
		}
	}()

	if err := t.action(); err != nil {
		t.failures.Add(1)
		t.logger.Warn().Err(err).Msg("debounced action failed")
	}
}
