package dictation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vascribe-labs/vascribe-core/internal/command"
	"github.com/vascribe-labs/vascribe-core/internal/narrative"
)

// Status tags the outcome of processing one utterance. None of these are
// fatal; a failed lookup leaves the buffer exactly as it was.
type Status string

const (
	StatusApplied         Status = "applied"
	StatusNarration       Status = "narration"
	StatusMacroNotFound   Status = "macro_not_found"
	StatusFieldNotPresent Status = "field_not_present"
	StatusSaved           Status = "saved"
	StatusSaveFailed      Status = "save_failed"
)

// Saver receives the finished narrative plus a completion tag. Whether the
// save lands is entirely the transport's call.
type Saver interface {
	Save(ctx context.Context, narrative, status string) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, narrative, status string) error

func (f SaverFunc) Save(ctx context.Context, narrative, status string) error {
	return f(ctx, narrative, status)
}

// Outcome is everything a front end needs after one utterance: the parsed
// command, what happened, and the buffer as it now stands.
type Outcome struct {
	Command   command.Command
	Status    Status
	Narrative string
	Remaining []string
}

// Session owns one procedure dictation: the parser, the narrative buffer,
// and the serialization point for every mutation. Transcription callbacks
// and direct terminal input both funnel through Process, which holds the
// session lock for the duration of each utterance.
type Session struct {
	id     string
	parser *command.Parser
	buffer *narrative.Buffer
	saver  Saver
	log    *slog.Logger
	mu     sync.Mutex
}

func NewSession(id string, parser *command.Parser, buffer *narrative.Buffer, log *slog.Logger) *Session {
	if id == "" {
		id = "proc-" + time.Now().UTC().Format("20060102-150405")
	}
	return &Session{
		id:     id,
		parser: parser,
		buffer: buffer,
		log:    log.With(slog.String("component", "dictation-session"), slog.String("session_id", id)),
	}
}

// SetSaver installs the persistence hook. A session without one treats
// every save command as failed, which is the offline behavior.
func (s *Session) SetSaver(saver Saver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saver = saver
}

func (s *Session) ID() string {
	return s.id
}

// Process classifies one utterance and applies it to the narrative. Text
// that is no command is appended verbatim as narration.
func (s *Session) Process(ctx context.Context, text string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := s.parser.Classify(text)
	status := StatusApplied

	switch cmd.Kind {
	case command.KindNone:
		s.buffer.AppendNarration(text)
		status = StatusNarration

	case command.KindInsertMacro:
		if err := s.buffer.InsertMacro(cmd.Macro); err != nil {
			s.log.Warn("macro not found", slog.String("macro", cmd.Macro))
			status = StatusMacroNotFound
		}

	case command.KindSetField:
		if err := s.buffer.SetField(cmd.Field, cmd.Value); err != nil {
			if errors.Is(err, narrative.ErrFieldNotPresent) {
				s.log.Warn("field not present in buffer", slog.String("field", cmd.Field))
			}
			status = StatusFieldNotPresent
		}

	case command.KindSetVesselField:
		if err := s.buffer.SetVesselField(cmd.Vessel, cmd.Property, cmd.Value); err != nil {
			if errors.Is(err, narrative.ErrFieldNotPresent) {
				s.log.Warn("vessel field not present in buffer",
					slog.String("vessel", cmd.Vessel), slog.String("property", cmd.Property))
			}
			status = StatusFieldNotPresent
		}

	case command.KindSaveProcedure:
		status = s.save(ctx)

	case command.KindClearBuffer:
		s.buffer.Clear()

	case command.KindShowFields:
		// Read-only; the remaining list below is the answer.
	}

	return Outcome{
		Command:   cmd,
		Status:    status,
		Narrative: s.buffer.Text(),
		Remaining: s.buffer.Placeholders(),
	}
}

func (s *Session) save(ctx context.Context) Status {
	text, tag := s.buffer.Export()
	if s.saver == nil {
		s.log.Warn("cannot save, no persistence configured")
		return StatusSaveFailed
	}
	if err := s.saver.Save(ctx, text, tag); err != nil {
		s.log.Warn("save failed", slog.String("error", err.Error()))
		return StatusSaveFailed
	}
	return StatusSaved
}

// Narrative returns the current buffer text without processing anything.
func (s *Session) Narrative() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Text()
}

// Remaining returns the unresolved placeholders without processing anything.
func (s *Session) Remaining() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Placeholders()
}
