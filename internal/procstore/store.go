package procstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vascribe-labs/vascribe-core/internal/config"
	_ "modernc.org/sqlite"
)

// Event is one recorded step of a dictation session: a transcript, a parsed
// command, or a save.
type Event struct {
	ID        int64
	SessionID string
	ActorID   string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Procedure is the persisted narrative for one dictation session.
type Procedure struct {
	SessionID string
	ActorID   string
	Narrative string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store wraps a SQLite-backed procedure archive plus a per-session event
// timeline.
type Store struct {
	db    *sql.DB
	cfg   config.ProcedureStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the procedure store according to config. Ephemeral
// retention skips the database entirely; every write becomes a no-op.
func Open(ctx context.Context, cfg config.ProcedureStoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("procedure store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("procedure store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS procedures (
    session_id TEXT PRIMARY KEY,
    actor_id TEXT,
    narrative TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    actor_id TEXT,
    event_type TEXT,
    payload BLOB,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session_created ON events(session_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveProcedure upserts the narrative for a session. This is the landing
// spot for the save operation: the engine hands over (text, status) and the
// store does the rest.
func (s *Store) SaveProcedure(ctx context.Context, sessionID, actorID, narrative, status string) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	now := s.clock().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO procedures(session_id, actor_id, narrative, status, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   actor_id=excluded.actor_id, narrative=excluded.narrative,
		   status=excluded.status, updated_at=excluded.updated_at`,
		sessionID, actorID, narrative, status, now, now)
	return err
}

// GetProcedure fetches one saved narrative.
func (s *Store) GetProcedure(ctx context.Context, sessionID string) (Procedure, error) {
	var p Procedure
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return p, sql.ErrNoRows
	}
	var created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, actor_id, narrative, status, created_at, updated_at
		 FROM procedures WHERE session_id = ?`, sessionID).
		Scan(&p.SessionID, &p.ActorID, &p.Narrative, &p.Status, &created, &updated)
	if err != nil {
		return p, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		p.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		p.UpdatedAt = ts
	}
	return p, nil
}

// AppendEvent writes one timeline entry.
func (s *Store) AppendEvent(ctx context.Context, evt Event) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(session_id, actor_id, event_type, payload, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		evt.SessionID, evt.ActorID, evt.Type, evt.Payload, evt.CreatedAt)
	return err
}

// ListSessionEvents retrieves up to limit events for a session ordered
// ascending by time.
func (s *Store) ListSessionEvents(ctx context.Context, sessionID string, limit int) ([]Event, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, actor_id, event_type, payload, created_at
		 FROM events WHERE session_id = ? ORDER BY created_at ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ActorID, &e.Type, &e.Payload, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune applies configured retention (called on startup and can be
// scheduled).
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM procedures WHERE updated_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxProcedures > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM procedures WHERE session_id IN (
			SELECT session_id FROM procedures ORDER BY updated_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxProcedures)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// Ensure verifies the ephemeral invariant: no database handle when
// persistence is disabled.
func (s *Store) Ensure() error {
	if s.cfg.RetentionMode == "ephemeral" && s.db != nil {
		return errors.New("ephemeral store should not have database connection")
	}
	return nil
}
