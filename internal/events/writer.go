package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	InspectionCreated = "inspection.created"
	InspectionSaved   = "inspection.saved"
	InspectionPruned  = "inspection.pruned"
	OrderUpserted     = "order.upserted"
	OrderDeleted      = "order.deleted"
)

// Types lists every event type the engine writes.
var Types = []string{InspectionCreated, InspectionSaved, InspectionPruned, OrderUpserted, OrderDeleted}

type Writer struct {
	Now func() time.Time
}

type EventPayload map[string]any

// Append writes one event inside tx so it commits with the change it records.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID string, payload EventPayload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), evtType, entityKind, nullable(entityID), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
