package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"motorsync/internal/hub"
)

// Stream consumes the server's SSE push channel and feeds a Reconciler.
// On transport loss it reconnects with exponential backoff; while
// disconnected the client is explicitly in a degraded state, observable
// through the state callback.
type Stream struct {
	url     string
	machine string
	rec     *Reconciler
	client  *http.Client
	backoff *Backoff
	log     *slog.Logger

	onState func(ConnState)
	onAlert func(hub.Message)
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithStateHook observes connection state transitions.
func WithStateHook(fn func(ConnState)) StreamOption {
	return func(s *Stream) { s.onState = fn }
}

// WithAlertHook receives alert frames; without it alerts are discarded.
func WithAlertHook(fn func(hub.Message)) StreamOption {
	return func(s *Stream) { s.onAlert = fn }
}

// WithHTTPClient swaps the transport client.
func WithHTTPClient(c *http.Client) StreamOption {
	return func(s *Stream) { s.client = c }
}

// WithBackoff swaps the reconnect schedule.
func WithBackoff(b *Backoff) StreamOption {
	return func(s *Stream) { s.backoff = b }
}

// NewStream creates a push-channel consumer. machine may be empty to
// subscribe to every machine's readings.
func NewStream(url, machine string, rec *Reconciler, log *slog.Logger, opts ...StreamOption) *Stream {
	s := &Stream{
		url:     url,
		machine: machine,
		rec:     rec,
		client:  &http.Client{},
		backoff: NewBackoff(time.Second, 30*time.Second),
		log:     log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run connects and consumes until ctx is done.
func (s *Stream) Run(ctx context.Context) {
	s.setState(StateDisconnected)
	for {
		delay := s.backoff.Next()
		if delay > 0 {
			s.setState(StateBackoffWait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		s.setState(StateConnecting)
		err := s.consume(ctx)
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}
		s.log.Warn("stream disconnected", "err", err)
		s.setState(StateDisconnected)
	}
}

func (s *Stream) consume(ctx context.Context) error {
	url := s.url
	if s.machine != "" {
		url = fmt.Sprintf("%s?machine=%s", s.url, s.machine)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream endpoint returned %s", resp.Status)
	}

	s.setState(StateConnected)
	s.backoff.Reset()

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		s.dispatch(strings.TrimPrefix(line, "data: "))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}

// dispatch merges one frame. Malformed or unknown payloads are dropped;
// the reconciler never crashes on bad input.
func (s *Stream) dispatch(data string) {
	var msg hub.Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		s.log.Debug("dropping malformed frame", "err", err)
		return
	}
	switch msg.Type {
	case hub.MessageReading:
		if msg.Reading == nil {
			return
		}
		s.rec.Apply(*msg.Reading)
	case hub.MessageAlert:
		if s.onAlert != nil {
			s.onAlert(msg)
		}
	}
}

func (s *Stream) setState(st ConnState) {
	if s.onState != nil {
		s.onState(st)
	}
}
