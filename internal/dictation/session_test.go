package dictation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vascribe-labs/vascribe-core/internal/command"
	"github.com/vascribe-labs/vascribe-core/internal/narrative"
)

const sessionTemplate = "NOTE - {date}\nSide: {procedure_side}\nTreatment: {superficial_femoral_treatment}"

func newTestSession() *Session {
	parser := command.NewParser(nil, nil)
	buffer := narrative.New(map[string]string{"vascular_procedure": sessionTemplate})
	buffer.SetClock(func() time.Time { return time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC) })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSession("proc-test", parser, buffer, log)
}

func TestSessionDefaultsID(t *testing.T) {
	parser := command.NewParser(nil, nil)
	buffer := narrative.New(nil)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := NewSession("", parser, buffer, log)
	if !strings.HasPrefix(s.ID(), "proc-") {
		t.Fatalf("generated id = %q", s.ID())
	}
}

func TestProcessNarration(t *testing.T) {
	s := newTestSession()

	out := s.Process(context.Background(), "patient tolerated the procedure well")
	if out.Status != StatusNarration {
		t.Fatalf("status = %q, want narration", out.Status)
	}
	if !strings.Contains(out.Narrative, "patient tolerated the procedure well") {
		t.Fatalf("narration not appended: %q", out.Narrative)
	}
}

func TestProcessInsertThenSet(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()

	out := s.Process(ctx, "insert vascular procedure")
	if out.Status != StatusApplied {
		t.Fatalf("insert status = %q", out.Status)
	}
	if !strings.Contains(out.Narrative, "NOTE - March 5, 2026") {
		t.Fatalf("date not substituted: %q", out.Narrative)
	}
	if len(out.Remaining) != 2 {
		t.Fatalf("remaining = %v, want 2 unresolved fields", out.Remaining)
	}

	out = s.Process(ctx, "set side to left")
	if out.Status != StatusApplied {
		t.Fatalf("set status = %q", out.Status)
	}
	if !strings.Contains(out.Narrative, "Side: left") {
		t.Fatalf("field not filled: %q", out.Narrative)
	}

	out = s.Process(ctx, "fill superficial femoral treatment as balloon and stent")
	if out.Status != StatusApplied {
		t.Fatalf("vessel set status = %q", out.Status)
	}
	if !strings.Contains(out.Narrative, "Treatment: PTA + Stent") {
		t.Fatalf("vessel field not filled: %q", out.Narrative)
	}
	if len(out.Remaining) != 0 {
		t.Fatalf("remaining = %v, want none", out.Remaining)
	}
}

func TestProcessMacroNotFound(t *testing.T) {
	// Empty macro library: the insert command parses but nothing resolves.
	parser := command.NewParser(nil, nil)
	buffer := narrative.New(nil)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewSession("proc-test", parser, buffer, log)

	out := s.Process(context.Background(), "insert vascular procedure")
	if out.Status != StatusMacroNotFound {
		t.Fatalf("status = %q, want macro_not_found", out.Status)
	}
	if out.Narrative != "" {
		t.Fatalf("buffer must stay empty, got %q", out.Narrative)
	}
}

func TestProcessFieldNotPresent(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()
	s.Process(ctx, "insert vascular procedure")
	before := s.Narrative()

	out := s.Process(ctx, "set sheath size to 5 french")
	if out.Status != StatusFieldNotPresent {
		t.Fatalf("status = %q, want field_not_present", out.Status)
	}
	if out.Narrative != before {
		t.Fatal("failed set must leave the buffer unchanged")
	}
}

func TestProcessSave(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()
	s.Process(ctx, "insert vascular procedure")

	// No saver configured yet.
	out := s.Process(ctx, "save procedure")
	if out.Status != StatusSaveFailed {
		t.Fatalf("status = %q, want save_failed without a saver", out.Status)
	}

	var gotText, gotStatus string
	s.SetSaver(SaverFunc(func(ctx context.Context, narrative, status string) error {
		gotText, gotStatus = narrative, status
		return nil
	}))

	out = s.Process(ctx, "save procedure")
	if out.Status != StatusSaved {
		t.Fatalf("status = %q, want saved", out.Status)
	}
	if gotText != s.Narrative() || gotStatus != "completed" {
		t.Fatalf("saver received (%q, %q)", gotText, gotStatus)
	}

	s.SetSaver(SaverFunc(func(ctx context.Context, narrative, status string) error {
		return errors.New("disk full")
	}))
	out = s.Process(ctx, "save procedure")
	if out.Status != StatusSaveFailed {
		t.Fatalf("status = %q, want save_failed on saver error", out.Status)
	}
}

func TestProcessClear(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()
	s.Process(ctx, "insert vascular procedure")

	out := s.Process(ctx, "clear buffer")
	if out.Status != StatusApplied {
		t.Fatalf("status = %q", out.Status)
	}
	if out.Narrative != "" || out.Remaining != nil {
		t.Fatalf("clear left state behind: %q %v", out.Narrative, out.Remaining)
	}
}

func TestProcessShowFields(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()
	s.Process(ctx, "insert vascular procedure")
	before := s.Narrative()

	out := s.Process(ctx, "show fields")
	if out.Status != StatusApplied {
		t.Fatalf("status = %q", out.Status)
	}
	if out.Narrative != before {
		t.Fatal("show fields must not mutate the buffer")
	}
	if len(out.Remaining) != 2 {
		t.Fatalf("remaining = %v", out.Remaining)
	}
}
