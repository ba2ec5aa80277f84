package repository

import (
	"context"
	"database/sql"
	"time"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/repository/db"
)

// SessionRepo persists the single planner session.
type SessionRepo interface {
	Save(ctx context.Context, s mfccalc.Session) error
	Load(ctx context.Context) (mfccalc.Session, error)
}

// EventRepo is the append-only session activity log with filtered reads.
type EventRepo interface {
	Append(ctx context.Context, e mfccalc.PlanEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]mfccalc.PlanEvent, error)
}

type Repository struct {
	Sessions SessionRepo
	Events   EventRepo
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		Sessions: NewSessionSQLite(database),
		Events:   NewEventSQLite(database),
	}
}

// InitDB opens the backing SQLite store and bootstraps the schema. Pass
// ":memory:" to keep the session purely in-memory.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}
