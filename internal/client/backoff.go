package client

import "time"

// ConnState is the observable connection state of a stream consumer.
type ConnState string

// Connection states.
const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateBackoffWait  ConnState = "backoff-wait"
)

// Backoff produces reconnect delays: the first retry is immediate, then
// delays double from the initial value up to a ceiling.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration
	retries int
}

// NewBackoff creates a backoff schedule.
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = initial
	}
	return &Backoff{initial: initial, max: max}
}

// Next returns the delay before the upcoming retry and advances the
// schedule.
func (b *Backoff) Next() time.Duration {
	b.retries++
	if b.retries == 1 {
		b.next = b.initial
		return 0
	}
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset restores the schedule after a successful connection.
func (b *Backoff) Reset() {
	b.retries = 0
	b.next = 0
}

// Retries returns how many retries have been handed out since the last
// reset.
func (b *Backoff) Retries() int {
	return b.retries
}
