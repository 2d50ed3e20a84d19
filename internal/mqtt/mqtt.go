// Package mqtt publishes panel events (key presses, volume changes and
// lifecycle transitions) to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/micro-nova/amplipi-panel/internal/models"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "amplipi/panel"

// Publisher publishes raw payloads to the broker.
type Publisher interface {
	// Publish sends payload on topic. A failure must not stop the caller.
	Publish(topic string, payload []byte, retained bool) error

	// Close disconnects from the broker.
	Close() error
}

// Subscriber is the event bus the forwarder reads from.
type Subscriber interface {
	Subscribe(id string) <-chan models.Event
	Unsubscribe(id string)
}

// Payload is the JSON body of every panel message.
type Payload struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Key       string `json:"key,omitempty"`
	Pin       *int   `json:"pin,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Volume    *int   `json:"volume,omitempty"`
	Device    string `json:"device_state,omitempty"`
}

// Topic returns the topic an event is published on: <prefix>/key/<name> for
// key events, <prefix>/<type> otherwise.
func Topic(prefix string, e models.Event) string {
	if e.Type == models.EventKey && e.Key != "" {
		return prefix + "/key/" + e.Key
	}
	return prefix + "/" + e.Type
}

// FormatPayload creates the JSON payload for an event.
func FormatPayload(e models.Event) ([]byte, error) {
	return json.Marshal(Payload{
		Timestamp: e.At.UTC().Format(time.RFC3339),
		Type:      e.Type,
		Key:       e.Key,
		Pin:       e.Pin,
		Kind:      e.Kind,
		Volume:    e.Volume,
		Device:    string(e.Device),
	})
}

// Retained reports whether an event's message should be kept by the broker.
// Volume and lifecycle messages carry state; key messages are edges.
func Retained(e models.Event) bool {
	return e.Type != models.EventKey
}

// Run forwards events from bus to pub until ctx is done. Publish failures are
// logged and the event dropped.
func Run(ctx context.Context, pub Publisher, bus Subscriber, prefix string) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ch := bus.Subscribe("mqtt")
	defer bus.Unsubscribe("mqtt")

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			payload, err := FormatPayload(e)
			if err != nil {
				slog.Warn("mqtt: failed to format event", "type", e.Type, "err", err)
				continue
			}
			topic := Topic(prefix, e)
			if err := pub.Publish(topic, payload, Retained(e)); err != nil {
				slog.Warn("mqtt: publish failed", "topic", topic, "err", err)
				continue
			}
			slog.Debug("mqtt: published", "topic", topic)
		}
	}
}
