package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipstream/server/internal/models"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		if ok {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
	}
}

func TestPublishReachesBothGroups(t *testing.T) {
	hub := NewHub()
	userSub := hub.SubscribeUser("u1")
	defer userSub.Close()
	mediaSub := hub.SubscribeMedia("m1")
	defer mediaSub.Close()

	hub.Publish("u1", Event{MediaID: "m1", Progress: 40, Status: models.MediaStatusProcessing})

	for _, sub := range []*Subscription{userSub, mediaSub} {
		ev := receive(t, sub)
		assert.Equal(t, "m1", ev.MediaID)
		assert.Equal(t, 40, ev.Progress)
	}
}

func TestPublishIsScoped(t *testing.T) {
	hub := NewHub()
	otherUser := hub.SubscribeUser("u2")
	defer otherUser.Close()
	otherMedia := hub.SubscribeMedia("m2")
	defer otherMedia.Close()

	hub.Publish("u1", Event{MediaID: "m1", Status: models.MediaStatusReady})

	assertNoEvent(t, otherUser)
	assertNoEvent(t, otherMedia)
}

func TestPublishFillsDefaults(t *testing.T) {
	hub := NewHub()
	sub := hub.SubscribeUser("u1")
	defer sub.Close()

	hub.Publish("u1", Event{MediaID: "m1", Status: models.MediaStatusFailed})

	ev := receive(t, sub)
	assert.Equal(t, "Processing failed", ev.Message)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestPublishKeepsExplicitMessage(t *testing.T) {
	hub := NewHub()
	sub := hub.SubscribeUser("u1")
	defer sub.Close()

	hub.Publish("u1", Event{MediaID: "m1", Status: models.MediaStatusProcessing, Message: "Transcoding"})

	assert.Equal(t, "Transcoding", receive(t, sub).Message)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	sub := hub.SubscribeUser("u1")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Publish("u1", Event{MediaID: "m1", Progress: i, Status: models.MediaStatusProcessing})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, sub.ch, subscriberBuffer)
}

func TestCloseDetachesAndIsIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.SubscribeUser("u1")

	sub.Close()
	sub.Close()

	_, ok := <-sub.C
	require.False(t, ok, "channel should be closed")

	// Publishing after close must not panic.
	hub.Publish("u1", Event{MediaID: "m1", Status: models.MediaStatusReady})
}

func TestStatusMessageFallsBackToRawStatus(t *testing.T) {
	assert.Equal(t, "Media is ready", StatusMessage(models.MediaStatusReady))
	assert.Equal(t, "weird", StatusMessage(models.MediaStatus("weird")))
}
