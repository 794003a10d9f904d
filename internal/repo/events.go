package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"inspectline/internal/domain"
)

// EventsAfter returns events with IDs greater than the cursor in ascending
// order, optionally restricted to one type.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, evtType string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,payload_json FROM events WHERE %s ORDER BY id ASC LIMIT ?`,
		strings.Join(clauses, " AND "))
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entityID sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.Payload); err != nil {
			return nil, err
		}
		e.EntityID = entityID.String
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent event ID, 0 when the log is empty.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
