package notify

import "sync"

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Event is one transient user-facing notification.
type Event struct {
	Level Level
	Text  string
}

// Hub fans notifications out to subscribers. Publish never blocks:
// a subscriber that stops draining its channel loses events.
type Hub struct {
	mu   sync.Mutex
	subs []chan Event
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) Subscribe() <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)
	h.subs = append(h.subs, ch)
	return ch
}

func (h *Hub) Publish(level Level, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- Event{Level: level, Text: text}:
		default:
		}
	}
}

func (h *Hub) Success(text string) { h.Publish(LevelSuccess, text) }
func (h *Hub) Error(text string)   { h.Publish(LevelError, text) }
func (h *Hub) Info(text string)    { h.Publish(LevelInfo, text) }
