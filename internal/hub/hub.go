// Package hub fans finalized readings and alerts out to live subscribers.
package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"motorsync/internal/telemetry"
)

// Message kinds pushed to subscribers.
const (
	MessageReading   = "reading"
	MessageAlert     = "alert"
	MessageHeartbeat = "heartbeat"
)

// Message is one push-channel frame. Exactly one of Reading/Alert is set
// for data frames; heartbeats carry neither.
type Message struct {
	Type    string             `json:"type"`
	Machine string             `json:"machine,omitempty"`
	Reading *telemetry.Reading `json:"reading,omitempty"`
	Alert   *telemetry.Alert   `json:"alert,omitempty"`
}

// Subscriber is one connected client handle. Messages arrive on C; the
// hub closes C when the subscriber is evicted or unsubscribed.
type Subscriber struct {
	ID      string
	C       <-chan Message
	ch      chan Message
	machine string // group scope; empty receives every publish
	misses  atomic.Int32
	once    sync.Once
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub tracks subscriber membership and delivers each publish at most once
// per currently-connected subscriber. Delivery is independent per
// subscriber: a full buffer means a drop for that subscriber, never a
// stall for the rest.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscriber

	heartbeat  time.Duration
	bufferSize int
	log        *slog.Logger

	onDrop       func() // metric hooks, may be nil
	onSubsChange func(n int)
}

// Option configures a Hub.
type Option func(*Hub)

// WithHeartbeat sets the liveness heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Hub) { h.heartbeat = d }
}

// WithBufferSize sets the per-subscriber channel depth.
func WithBufferSize(n int) Option {
	return func(h *Hub) { h.bufferSize = n }
}

// WithDropHook registers a callback fired once per dropped message.
func WithDropHook(fn func()) Option {
	return func(h *Hub) { h.onDrop = fn }
}

// WithSubscriberHook registers a callback fired with the subscriber count
// after every connect/disconnect.
func WithSubscriberHook(fn func(n int)) Option {
	return func(h *Hub) { h.onSubsChange = fn }
}

// New creates a hub.
func New(log *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		subs:       make(map[string]*Subscriber),
		heartbeat:  15 * time.Second,
		bufferSize: 64,
		log:        log,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Subscribe registers a new subscriber. machine scopes delivery to one
// group; empty subscribes to the full broadcast.
func (h *Hub) Subscribe(machine string) *Subscriber {
	ch := make(chan Message, h.bufferSize)
	sub := &Subscriber{
		ID:      uuid.New().String(),
		C:       ch,
		ch:      ch,
		machine: machine,
	}
	h.mu.Lock()
	h.subs[sub.ID] = sub
	n := len(h.subs)
	h.mu.Unlock()

	h.log.Info("subscriber connected", "id", sub.ID, "machine", machine, "total", n)
	if h.onSubsChange != nil {
		h.onSubsChange(n)
	}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()
	if !ok {
		return
	}
	sub.close()
	h.log.Info("subscriber disconnected", "id", id, "total", n)
	if h.onSubsChange != nil {
		h.onSubsChange(n)
	}
}

// JoinGroup scopes an existing subscriber to a machine group.
func (h *Hub) JoinGroup(id, machine string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		sub.machine = machine
	}
}

// LeaveGroup returns a subscriber to broadcast scope.
func (h *Hub) LeaveGroup(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		sub.machine = ""
	}
}

// Publish delivers msg to every subscriber in scope. machine selects the
// group; empty publishes to everyone. A subscriber that connects after
// this call does not receive the message.
func (h *Hub) Publish(machine string, msg Message) {
	msg.Machine = machine

	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		if machine == "" || sub.machine == "" || sub.machine == machine {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.ch <- msg:
			sub.misses.Store(0)
		default:
			// Slow subscriber: drop for this one, keep going.
			sub.misses.Add(1)
			if h.onDrop != nil {
				h.onDrop()
			}
			h.log.Warn("dropped message for slow subscriber", "id", sub.ID, "type", msg.Type)
		}
	}
}

// PublishReading pushes a persisted reading to the machine's group.
func (h *Hub) PublishReading(r telemetry.Reading) {
	h.Publish(r.MachineID, Message{Type: MessageReading, Reading: &r})
}

// PublishAlert pushes an alert to the machine's group.
func (h *Hub) PublishAlert(a telemetry.Alert) {
	h.Publish(a.MachineID, Message{Type: MessageAlert, Alert: &a})
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Run emits heartbeats and evicts subscribers that failed every delivery
// since the previous beat. Blocks until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.beat()
		}
	}
}

func (h *Hub) beat() {
	h.mu.Lock()
	var dead []*Subscriber
	for id, sub := range h.subs {
		if sub.misses.Load() > 0 {
			select {
			case sub.ch <- Message{Type: MessageHeartbeat}:
				sub.misses.Store(0)
				continue
			default:
			}
			// Buffer still full a whole heartbeat later: treat as gone.
			delete(h.subs, id)
			dead = append(dead, sub)
			continue
		}
		select {
		case sub.ch <- Message{Type: MessageHeartbeat}:
		default:
			sub.misses.Add(1)
		}
	}
	n := len(h.subs)
	h.mu.Unlock()

	for _, sub := range dead {
		sub.close()
		h.log.Warn("evicted unresponsive subscriber", "id", sub.ID)
	}
	if len(dead) > 0 && h.onSubsChange != nil {
		h.onSubsChange(n)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*Subscriber)
	h.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}
