package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Event is a bus message addressed to one user. UserID 0 events are
// broadcast-only; subscribers on channel 0 also see every addressed event.
type Event struct {
	Type    string `json:"type"`
	UserID  int64  `json:"user_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type EventBus struct {
	mu   sync.RWMutex
	subs map[int64]map[chan []byte]struct{}
}

func NewEventBus() *EventBus { return &EventBus{subs: make(map[int64]map[chan []byte]struct{})} }

func (b *EventBus) Subscribe(userID int64) (ch chan []byte, cancel func()) {
	ch = make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan []byte]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		if subs, ok := b.subs[userID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.subs, userID)
			}
		}
		b.mu.Unlock()
		close(ch)
	}
}

func (b *EventBus) Publish(ev Event) {
	data, _ := json.Marshal(ev)
	b.mu.RLock()
	for ch := range b.subs[ev.UserID] {
		select {
		case ch <- data:
		default: /* drop if slow */
		}
	}
	if ev.UserID != 0 {
		for ch := range b.subs[0] {
			select {
			case ch <- data:
			default:
			}
		}
	}
	b.mu.RUnlock()
}

// Serve a single SSE connection for the given user's feed.
func (b *EventBus) ServeSSE(w http.ResponseWriter, r *http.Request, userID int64) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	ch, cancel := b.Subscribe(userID)
	defer cancel()

	// Initial comment to open the stream
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			// heartbeat comment to keep connection alive through proxies
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(msg)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
