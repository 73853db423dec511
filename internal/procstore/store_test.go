package procstore

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/vascribe-labs/vascribe-core/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T, cfg config.ProcedureStoreConfig) *Store {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "procedures.db")
	}
	if cfg.RetentionMode == "" {
		cfg.RetentionMode = "persistent"
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEphemeralStoreNoops(t *testing.T) {
	s, err := Open(context.Background(), config.ProcedureStoreConfig{RetentionMode: "ephemeral"}, newLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	ctx := context.Background()
	if err := s.SaveProcedure(ctx, "proc-1", "surgeon", "text", "completed"); err != nil {
		t.Fatalf("save must be a no-op: %v", err)
	}
	if _, err := s.GetProcedure(ctx, "proc-1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("get err = %v, want ErrNoRows", err)
	}
	if err := s.AppendEvent(ctx, Event{SessionID: "proc-1", Type: "transcript"}); err != nil {
		t.Fatalf("append must be a no-op: %v", err)
	}
}

func TestSaveAndGetProcedure(t *testing.T) {
	s := openTestStore(t, config.ProcedureStoreConfig{})
	ctx := context.Background()

	if err := s.SaveProcedure(ctx, "proc-1", "dr-smith", "NOTE v1", "completed"); err != nil {
		t.Fatalf("save: %v", err)
	}

	p, err := s.GetProcedure(ctx, "proc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Narrative != "NOTE v1" || p.ActorID != "dr-smith" || p.Status != "completed" {
		t.Fatalf("unexpected procedure: %+v", p)
	}

	// Saving again replaces the narrative, not duplicates it.
	if err := s.SaveProcedure(ctx, "proc-1", "dr-smith", "NOTE v2", "completed"); err != nil {
		t.Fatalf("resave: %v", err)
	}
	p, err = s.GetProcedure(ctx, "proc-1")
	if err != nil {
		t.Fatalf("get after resave: %v", err)
	}
	if p.Narrative != "NOTE v2" {
		t.Fatalf("narrative = %q, want NOTE v2", p.Narrative)
	}
}

func TestGetMissingProcedure(t *testing.T) {
	s := openTestStore(t, config.ProcedureStoreConfig{})
	if _, err := s.GetProcedure(context.Background(), "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want ErrNoRows", err)
	}
}

func TestAppendAndListEvents(t *testing.T) {
	s := openTestStore(t, config.ProcedureStoreConfig{})
	ctx := context.Background()

	base := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		evt := Event{
			SessionID: "proc-1",
			ActorID:   "dr-smith",
			Type:      "command",
			Payload:   []byte(`{"kind":"set_field"}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.AppendEvent(ctx, evt); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := s.AppendEvent(ctx, Event{SessionID: "proc-2", Type: "transcript"}); err != nil {
		t.Fatalf("append other session: %v", err)
	}

	events, err := s.ListSessionEvents(ctx, "proc-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].CreatedAt.Before(events[i-1].CreatedAt) {
			t.Fatal("events must be ordered ascending by time")
		}
	}

	limited, err := s.ListSessionEvents(ctx, "proc-1", 2)
	if err != nil {
		t.Fatalf("limited list: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("got %d events, want limit of 2", len(limited))
	}
}

func TestPruneByAge(t *testing.T) {
	s := openTestStore(t, config.ProcedureStoreConfig{RetentionDays: 30})
	ctx := context.Background()

	now := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)

	s.clock = func() time.Time { return now.AddDate(0, 0, -60) }
	if err := s.SaveProcedure(ctx, "proc-old", "", "old note", "completed"); err != nil {
		t.Fatalf("save old: %v", err)
	}

	s.clock = func() time.Time { return now }
	if err := s.SaveProcedure(ctx, "proc-new", "", "new note", "completed"); err != nil {
		t.Fatalf("save new: %v", err)
	}

	if err := s.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	if _, err := s.GetProcedure(ctx, "proc-old"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expired procedure survived prune: %v", err)
	}
	if _, err := s.GetProcedure(ctx, "proc-new"); err != nil {
		t.Fatalf("fresh procedure pruned: %v", err)
	}
}

func TestPruneByCount(t *testing.T) {
	s := openTestStore(t, config.ProcedureStoreConfig{MaxProcedures: 2})
	ctx := context.Background()

	base := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		s.clock = func() time.Time { return ts }
		if err := s.SaveProcedure(ctx, "proc-"+string(rune('a'+i)), "", "note", "completed"); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	if err := s.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	// The two most recently updated sessions survive.
	if _, err := s.GetProcedure(ctx, "proc-d"); err != nil {
		t.Fatalf("newest pruned: %v", err)
	}
	if _, err := s.GetProcedure(ctx, "proc-c"); err != nil {
		t.Fatalf("second newest pruned: %v", err)
	}
	if _, err := s.GetProcedure(ctx, "proc-a"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("oldest survived count prune: %v", err)
	}
}
