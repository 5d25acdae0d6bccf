package notify

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNotifyAvatarChangedPayload(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	d := NewDispatcher(nil, r)

	ch := NewChannel(4)
	r.Register(1, ch)

	before := time.Now().UnixMilli()
	d.NotifyAvatarChanged(1, "/uploads/avatars/abc.png")

	select {
	case raw := <-ch.Outbox():
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if ev.Type != EventAvatarChanged {
			t.Fatalf("type = %q, want %q", ev.Type, EventAvatarChanged)
		}
		if ev.AvatarURL != "/uploads/avatars/abc.png" {
			t.Fatalf("avatarUrl = %q", ev.AvatarURL)
		}
		if ev.Timestamp < before {
			t.Fatalf("timestamp %d predates the notification", ev.Timestamp)
		}
	default:
		t.Fatal("no event delivered")
	}
}

func TestNotifyAvatarChangedNoChannels(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, NewRegistry())
	// Must not panic or block.
	d.NotifyAvatarChanged(99, "/uploads/avatars/x.png")
}

func TestNotifyAvatarChangedFansOut(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	d := NewDispatcher(nil, r)

	chans := make([]*Channel, 3)
	for i := range chans {
		chans[i] = NewChannel(4)
		r.Register(5, chans[i])
	}

	d.NotifyAvatarChanged(5, "/uploads/avatars/new.png")

	for i, ch := range chans {
		select {
		case <-ch.Outbox():
		default:
			t.Fatalf("channel %d received nothing", i)
		}
	}
}

func TestNotifyAvatarChangedDropsOnBackpressure(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	d := NewDispatcher(nil, r)

	full := NewChannel(1)
	full.TrySend([]byte("filler"))
	empty := NewChannel(1)
	r.Register(2, full)
	r.Register(2, empty)

	d.NotifyAvatarChanged(2, "/uploads/avatars/y.png")

	select {
	case <-empty.Outbox():
	default:
		t.Fatal("healthy channel starved by a full sibling")
	}
	if got := r.CountFor(2); got != 2 {
		t.Fatalf("count = %d, want 2; a dropped send must not unregister", got)
	}
}

func TestDisconnectAccount(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	d := NewDispatcher(nil, r)

	a := NewChannel(1)
	b := NewChannel(1)
	r.Register(8, a)
	r.Register(8, b)

	d.DisconnectAccount(8)

	if got := r.CountFor(8); got != 0 {
		t.Fatalf("count = %d, want 0", got)
	}
	for _, ch := range []*Channel{a, b} {
		select {
		case <-ch.Done():
		default:
			t.Fatalf("channel %s not closed", ch.ID)
		}
	}

	// Idempotent on an already-cleared account.
	d.DisconnectAccount(8)
}
