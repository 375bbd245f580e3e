// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Notifier receives workflow events. Notify must not block and has no error
// to return; a lost event is acceptable.
type Notifier interface {
	Notify(ctx context.Context, workflowID string, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, workflowID string, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, workflowID string, ev Event) {
	f(ctx, workflowID, ev)
}

// Nop drops every event.
var Nop Notifier = NotifierFunc(func(context.Context, string, Event) {})

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, workflowID string, ev Event) {
	for _, n := range m {
		n.Notify(ctx, workflowID, ev)
	}
}

// LogNotifier writes events to the structured log at debug level.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, workflowID string, ev Event) {
	slog.DebugContext(ctx, "Workflow event",
		"workflow_id", workflowID,
		"type", ev.Type,
		"agent", ev.Agent,
		"status", ev.Status,
		"message", ev.Message)
}

type subscription struct {
	id         string
	workflowID string
	ch         chan Event
}

// Hub is an in-process pub/sub of workflow events. Each subscriber owns a
// buffered channel; when it is full the event is dropped for that
// subscriber only.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]*subscription
	buffer  int
	closed  bool
	dropped atomic.Int64
}

// NewHub creates a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[string]*subscription), buffer: buffer}
}

// Subscribe registers for the events of workflowID, or of every workflow if
// workflowID is empty. The returned cancel function closes the channel.
func (h *Hub) Subscribe(workflowID string) (<-chan Event, func()) {
	sub := &subscription{
		id:         uuid.NewString(),
		workflowID: workflowID,
		ch:         make(chan Event, h.buffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	h.subs[sub.id] = sub
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { h.unsubscribe(sub.id) })
	}
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Notify delivers ev to matching subscribers without blocking.
func (h *Hub) Notify(_ context.Context, workflowID string, ev Event) {
	if ev.WorkflowID == "" {
		ev.WorkflowID = workflowID
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.workflowID != "" && sub.workflowID != workflowID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was
// full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}

var (
	_ Notifier = (*Hub)(nil)
	_ Notifier = Multi(nil)
	_ Notifier = LogNotifier{}
)
