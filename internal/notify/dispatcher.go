package notify

import (
	"encoding/json"
	"log/slog"
	"time"

	"beacon/internal/metrics"
)

// Event types pushed over notification channels.
const (
	EventConnected     = "CONNECTED"
	EventAvatarChanged = "AVATAR_CHANGED"
)

// Event is the wire shape of a pushed notification.
type Event struct {
	Type      string `json:"type"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Dispatcher translates business events into registry fan-out and teardown.
type Dispatcher struct {
	log      *slog.Logger
	registry *Registry
}

// NewDispatcher constructs a Dispatcher over registry.
func NewDispatcher(log *slog.Logger, registry *Registry) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{log: log, registry: registry}
}

// NotifyAvatarChanged pushes an AVATAR_CHANGED event to every open channel
// for accountID. Unreachable channels are skipped, never treated as errors;
// zero open channels is a no-op.
func (d *Dispatcher) NotifyAvatarChanged(accountID int64, avatarURL string) {
	payload, err := json.Marshal(Event{
		Type:      EventAvatarChanged,
		AvatarURL: avatarURL,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		d.log.Error("notify.avatar.marshal.fail", "err", err)
		return
	}

	sent := 0
	d.registry.ForEachChannel(accountID, func(ch *Channel) {
		if ch.TrySend(payload) {
			sent++
			metrics.NotificationsSent.Inc()
		}
	})

	d.log.Info("notify.avatar_changed", "account_id", accountID, "sent", sent)
}

// DisconnectAccount force-closes every channel for accountID and clears its
// registry entry. Used when the account is deleted.
func (d *Dispatcher) DisconnectAccount(accountID int64) {
	closed := 0
	d.registry.ForEachChannel(accountID, func(ch *Channel) {
		ch.Close()
		d.registry.Remove(accountID, ch)
		closed++
	})

	d.log.Info("notify.disconnect_account", "account_id", accountID, "closed", closed)
}
