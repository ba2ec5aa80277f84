package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
)

// eventTimeLayout is the SQLite TIMESTAMP text form. Writes and range filters
// share it so that [from, to] comparisons stay inclusive at the boundaries.
const eventTimeLayout = "2006-01-02 15:04:05"

const (
	insertEventSQL = `
		INSERT INTO plan_events (id, occurred_at, type, message, meta)
		VALUES (?, ?, ?, ?, ?)
	`

	selectEventsSQL = `SELECT id, occurred_at, type, message, meta FROM plan_events`
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

// normalizeEventType uppercases the event type so filters don’t depend on
// caller casing.
func normalizeEventType(typ string) string {
	return strings.ToUpper(strings.TrimSpace(typ))
}

// Append writes one event row, filling in EventID and OccurredAt when they’re
// blank. Timestamps are stored as UTC text truncated to whole seconds.
func (r *EventSQLite) Append(ctx context.Context, e mfccalc.PlanEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	occurred := e.OccurredAt.UTC()
	if e.OccurredAt.IsZero() {
		occurred = time.Now().UTC()
	}

	// metadata rides in a JSON text column; a marshal failure leaves it NULL
	var metaPtr *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		occurred.Format(eventTimeLayout),
		normalizeEventType(e.Type),
		e.Description,
		metaPtr,
	)

	return err
}

// List returns events in ascending time order, optionally narrowed to an
// inclusive [from, to] window and a single type. Bounds are formatted into the
// stored text layout before comparison; stored stamps carry no sub-second
// part, so truncating a bound cannot drop an event.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]mfccalc.PlanEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format(eventTimeLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format(eventTimeLayout))
	}
	if typ = normalizeEventType(typ); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := selectEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]mfccalc.PlanEvent, 0, 64)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanEvent(rows *sql.Rows) (mfccalc.PlanEvent, error) {
	var ev mfccalc.PlanEvent
	var metaStr sql.NullString
	if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &metaStr); err != nil {
		return mfccalc.PlanEvent{}, err
	}
	ev.OccurredAt = ev.OccurredAt.UTC()

	if metaStr.Valid && metaStr.String != "" {
		var v any
		if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
			ev.Metadata = v
		} else {
			ev.Metadata = metaStr.String // malformed JSON is kept raw
		}
	}
	return ev, nil
}
