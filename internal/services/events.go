package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/findly-app/apiserver/internal/mq"
	"github.com/findly-app/apiserver/types"
)

// NotificationsChannel is the broker channel notification events are
// published to and the notifier command subscribes on.
const NotificationsChannel = "notifications"

// Event types.
const (
	EventClaimCreated       = "claim_created"
	EventClaimStatusChanged = "claim_status_changed"
	EventItemMatched        = "item_matched"
)

// Event is the JSON payload published for a notification.
type Event struct {
	// Type is one of the Event* constants.
	Type string `json:"type"`

	// UserID is the user the notification is addressed to.
	UserID int `json:"user_id"`

	// ItemID is the affected item.
	ItemID int `json:"item_id"`

	// ClaimID is the affected claim, 0 for item-only events.
	ClaimID int `json:"claim_id,omitempty"`

	// Status carries the new claim status for status-change events.
	Status types.ClaimStatus `json:"status,omitempty"`

	// MatchedItemID is the counterpart report for match events.
	MatchedItemID int `json:"matched_item_id,omitempty"`
}

// Events publishes notification events to the configured broker.
// Publishing is best-effort: failures are logged and never propagate,
// and a nil broker disables publishing entirely.
type Events struct {
	broker *mq.MQ
}

// NewEvents constructs an Events publisher. broker may be nil.
func NewEvents(broker *mq.MQ) *Events {
	return &Events{broker: broker}
}

// Publish serializes the event and sends it on the notifications
// channel.
func (e *Events) Publish(ctx context.Context, event Event) {
	if e == nil || e.broker == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to encode notification event", "type", event.Type, "error", err)
		return
	}

	attrs := map[string]string{"type": event.Type}
	if _, err := e.broker.Publish(ctx, NotificationsChannel, data, attrs); err != nil {
		slog.Warn("failed to publish notification event", "type", event.Type, "error", err)
	}
}
