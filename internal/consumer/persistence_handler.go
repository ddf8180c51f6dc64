package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PersistenceHandler writes consumed activity events into Postgres for auditing.
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a handler backed by the provided pool.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// Handle stores the event in activity_event_log. Redelivered messages are
// ignored by message id.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	activityID, err := activityIDFromPayload(msg.Payload)
	if err != nil {
		return err
	}

	_, err = h.pool.Exec(ctx,
		`INSERT INTO activity_event_log (message_id, activity_id, event_type, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
         ON CONFLICT (message_id) DO NOTHING`,
		msg.MessageID,
		activityID,
		msg.EventType,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	)
	return err
}

func activityIDFromPayload(payload json.RawMessage) (int64, error) {
	var body struct {
		ActivityID *int64 `json:"activity_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return 0, fmt.Errorf("decode activity payload: %w", err)
	}
	if body.ActivityID == nil {
		return 0, fmt.Errorf("activity payload missing activity_id")
	}
	return *body.ActivityID, nil
}
