// Package events publishes a record of every pull and push so other systems
// can react to syndication.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Kind is the syndication operation an event describes.
type Kind string

const (
	KindPull Kind = "pull"
	KindPush Kind = "push"
)

// Event is published once per pulled item and once per push attempt.
type Event struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	Timestamp     time.Time `json:"timestamp"`
	ConnectionID  string    `json:"connection_id"`
	RemoteBaseURL string    `json:"remote_base_url"`

	LocalID   int64  `json:"local_id,omitempty"`
	RemoteID  int64  `json:"remote_id,omitempty"`
	TargetURL string `json:"target_url,omitempty"`

	FullConnection bool `json:"full_connection"`

	// Error is set when the operation failed.
	Error string `json:"error,omitempty"`
}

// New returns an event with a fresh ID and timestamp.
func New(kind Kind, connectionID, remoteBaseURL string) Event {
	return Event{
		ID:            uuid.New().String(),
		Kind:          kind,
		Timestamp:     time.Now().UTC(),
		ConnectionID:  connectionID,
		RemoteBaseURL: remoteBaseURL,
	}
}

// Failed reports whether the event records a failure.
func (e Event) Failed() bool {
	return e.Error != ""
}

// Sink receives events.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// LogSink writes each event to a logger.
type LogSink struct {
	Logger hclog.Logger
}

func (s LogSink) Publish(_ context.Context, e Event) error {
	args := []interface{}{
		"id", e.ID,
		"kind", e.Kind,
		"connection", e.ConnectionID,
		"local_id", e.LocalID,
		"remote_id", e.RemoteID,
		"full_connection", e.FullConnection,
	}
	if e.Failed() {
		s.Logger.Warn("syndication failed", append(args, "error", e.Error)...)
		return nil
	}
	s.Logger.Info("syndicated", args...)
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
