package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OutboxEvent describes a domain event to store in the outbox.
type OutboxEvent struct {
	OwnerID   snowflake.ID
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// Outbox inserts domain events into the domain_events table. A relay outside
// this process drains unpublished rows and delivers them.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event OutboxEvent) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction, so the event row
// commits atomically with the aggregate save it describes.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event OutboxEvent) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

// PublishAll drains a recorder into the outbox and clears it.
func (o *Outbox) PublishAll(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, rec *Recorder) error {
	if rec == nil {
		return nil
	}
	for _, evt := range rec.Events() {
		out := OutboxEvent{OwnerID: ownerID, Type: evt.Type, Payload: evt.Payload}
		if err := o.publish(ctx, tx, out); err != nil {
			return err
		}
	}
	rec.Clear()
	return nil
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event OutboxEvent) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	if event.OwnerID == 0 {
		return errors.New("invalid_owner_id")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	dedupe := strings.TrimSpace(event.DedupeKey)
	var dedupeValue any
	if dedupe != "" {
		dedupeValue = dedupe
	}

	now := time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`INSERT INTO domain_events (id, owner_id, event_type, payload, dedupe_key, published, created_at)
		 VALUES (?, ?, ?, ?, ?, false, ?)
		 ON CONFLICT (owner_id, dedupe_key) DO NOTHING`,
		o.genID.Generate(),
		event.OwnerID,
		name,
		payload,
		dedupeValue,
		now,
	).Error
}
