// Package notify fans processing events out to two orthogonal subscriber
// groups: per-user channels that see every update for that user's media,
// and per-media channels for observers of a single record. Delivery is
// best-effort; a full or disconnected subscriber misses updates.
package notify

import (
	"sync"
	"time"

	"clipstream/server/internal/models"
)

const subscriberBuffer = 16

type Event struct {
	MediaID   string             `json:"mediaId"`
	Progress  int                `json:"progress"`
	Status    models.MediaStatus `json:"status"`
	Message   string             `json:"message"`
	Timestamp time.Time          `json:"timestamp"`
}

var statusMessages = map[models.MediaStatus]string{
	models.MediaStatusUploaded:   "Upload received",
	models.MediaStatusProcessing: "Processing media",
	models.MediaStatusSafe:       "Processing complete",
	models.MediaStatusFlagged:    "Processing complete, content flagged for review",
	models.MediaStatusReady:      "Media is ready",
	models.MediaStatusFailed:     "Processing failed",
}

// StatusMessage returns the human-readable default for a status.
func StatusMessage(status models.MediaStatus) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return string(status)
}

type groupKind int

const (
	userGroup groupKind = iota
	mediaGroup
)

type Subscription struct {
	C    <-chan Event
	ch   chan Event
	hub  *Hub
	kind groupKind
	key  string
	once sync.Once
}

// Close detaches the subscription from the hub. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*Subscription]struct{}
	media map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users: make(map[string]map[*Subscription]struct{}),
		media: make(map[string]map[*Subscription]struct{}),
	}
}

func (h *Hub) SubscribeUser(userID string) *Subscription {
	return h.subscribe(userGroup, userID)
}

func (h *Hub) SubscribeMedia(mediaID string) *Subscription {
	return h.subscribe(mediaGroup, mediaID)
}

func (h *Hub) subscribe(kind groupKind, key string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, hub: h, kind: kind, key: key}

	h.mu.Lock()
	defer h.mu.Unlock()

	groups := h.groupsFor(kind)
	if groups[key] == nil {
		groups[key] = make(map[*Subscription]struct{})
	}
	groups[key][sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	groups := h.groupsFor(sub.kind)
	if set, ok := groups[sub.key]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(groups, sub.key)
		}
	}
	close(sub.ch)
}

func (h *Hub) groupsFor(kind groupKind) map[string]map[*Subscription]struct{} {
	if kind == userGroup {
		return h.users
	}
	return h.media
}

// Publish delivers the event to the user's channel and to the media's
// channel. No ordering guarantee holds between the two groups.
func (h *Hub) Publish(userID string, ev Event) {
	if ev.Message == "" {
		ev.Message = StatusMessage(ev.Status)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.users[userID] {
		sub.send(ev)
	}
	for sub := range h.media[ev.MediaID] {
		sub.send(ev)
	}
}

func (s *Subscription) send(ev Event) {
	select {
	case s.ch <- ev:
	default:
		// Slow subscriber: drop rather than block the pipeline.
	}
}
