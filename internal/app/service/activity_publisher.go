package service

import (
	"encoding/json"
	"time"

	"github.com/arslanov/padlock/internal/app/model"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ActivityPublisher publishes pad activity events to NATS JetStream.
type ActivityPublisher struct {
	js nats.JetStreamContext
}

// NewActivityPublisher creates a new activity event publisher.
func NewActivityPublisher(js nats.JetStreamContext) *ActivityPublisher {
	return &ActivityPublisher{js: js}
}

// Publish emits one activity event to the stream. Callers treat failures as
// non-fatal; the event feed is an audit trail, not part of the write path.
func (p *ActivityPublisher) Publish(padID, kind, detail string) error {
	event := model.ActivityEvent{
		ID:        uuid.New().String(),
		PadID:     padID,
		Kind:      kind,
		Detail:    detail,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ActivityStreamSubject, data)
	return err
}
