package dictation

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vascribe-labs/vascribe-core/internal/backend"
	"github.com/vascribe-labs/vascribe-core/internal/bus"
	"github.com/vascribe-labs/vascribe-core/internal/command"
	"github.com/vascribe-labs/vascribe-core/internal/config"
	"github.com/vascribe-labs/vascribe-core/internal/procstore"
	"github.com/vascribe-labs/vascribe-core/internal/protocol"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Service connects the dictation session to the rest of the system: it
// subscribes to finalized transcripts, funnels them through the session (the
// single writer), and fans the results out to the bus, the procedure store,
// and the backend.
type Service struct {
	cfg     config.DictationConfig
	bus     *bus.Client
	session *Session
	store   *procstore.Store
	backend *backend.Client
	logger  *slog.Logger
	sub     *nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	commandCounter metric.Int64Counter
}

func NewService(parent context.Context, cfg config.DictationConfig, busClient *bus.Client, session *Session, store *procstore.Store, backendClient *backend.Client, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	s := &Service{
		cfg:     cfg,
		bus:     busClient,
		session: session,
		store:   store,
		backend: backendClient,
		logger:  logger.With(slog.String("component", "dictation-service")),
		ctx:     ctx,
		cancel:  cancel,
	}

	meter := otel.Meter("github.com/vascribe-labs/vascribe-core/dictation")
	counter, err := meter.Int64Counter("vascribe.commands.processed",
		metric.WithDescription("Utterances processed, by command kind and status"))
	if err != nil {
		s.logger.Warn("failed to initialize command counter", slogError(err))
	} else {
		s.commandCounter = counter
	}

	session.SetSaver(SaverFunc(s.save))
	return s
}

func (s *Service) Start() error {
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectTranscriptFinal, s.handleTranscript)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool {
	return s.sub != nil
}

func (s *Service) handleTranscript(msg *nats.Msg) {
	var transcript protocol.Transcript
	if err := json.Unmarshal(msg.Data, &transcript); err != nil {
		s.logger.Warn("failed to decode transcript", slogError(err))
		return
	}
	if transcript.Partial || transcript.Text == "" {
		return
	}

	if s.backend != nil && s.backend.Online() {
		if err := s.backend.SendTranscription(transcript.Text); err != nil {
			s.logger.Warn("failed to forward transcription", slogError(err))
		}
	}

	outcome := s.session.Process(s.ctx, transcript.Text)
	s.logger.Info("utterance processed",
		slog.String("kind", outcome.Command.Kind.String()),
		slog.String("status", string(outcome.Status)))

	if s.commandCounter != nil {
		s.commandCounter.Add(s.ctx, 1,
			metric.WithAttributes(
				attribute.String("kind", outcome.Command.Kind.String()),
				attribute.String("status", string(outcome.Status))))
	}

	s.recordEvents(transcript.Text, outcome)
	s.publishOutcome(outcome)

	if s.backend != nil && s.backend.Online() && outcome.Command.Kind != command.KindNone {
		if err := s.backend.SendCommand(outcome.Command.Kind.String(), commandParams(outcome.Command)); err != nil {
			s.logger.Warn("failed to forward command", slogError(err))
		}
	}
}

func (s *Service) recordEvents(text string, outcome Outcome) {
	if s.store == nil {
		return
	}
	sessionID := s.session.ID()
	if err := s.store.AppendEvent(s.ctx, procstore.Event{
		SessionID: sessionID,
		ActorID:   s.cfg.ActorID,
		Type:      "transcript",
		Payload:   []byte(text),
	}); err != nil {
		s.logger.Warn("failed to record transcript event", slogError(err))
	}
	if outcome.Command.Kind == command.KindNone {
		return
	}
	payload, err := json.Marshal(protocol.CommandEvent{
		SessionID: sessionID,
		Kind:      outcome.Command.Kind.String(),
		Params:    commandParams(outcome.Command),
		Status:    string(outcome.Status),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := s.store.AppendEvent(s.ctx, procstore.Event{
		SessionID: sessionID,
		ActorID:   s.cfg.ActorID,
		Type:      "command",
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("failed to record command event", slogError(err))
	}
}

func (s *Service) publishOutcome(outcome Outcome) {
	now := time.Now().UTC()
	sessionID := s.session.ID()

	if outcome.Command.Kind != command.KindNone {
		event := protocol.CommandEvent{
			SessionID: sessionID,
			Kind:      outcome.Command.Kind.String(),
			Params:    commandParams(outcome.Command),
			Status:    string(outcome.Status),
			Timestamp: now,
		}
		if data, err := json.Marshal(event); err == nil {
			if err := s.bus.Conn().Publish(protocol.SubjectDictationCommand, data); err != nil {
				s.logger.Warn("failed to publish command event", slogError(err))
			}
		}
	}

	update := protocol.BufferUpdate{
		SessionID: sessionID,
		Narrative: outcome.Narrative,
		Remaining: outcome.Remaining,
		Timestamp: now,
	}
	if data, err := json.Marshal(update); err == nil {
		if err := s.bus.Conn().Publish(protocol.SubjectDictationBuffer, data); err != nil {
			s.logger.Warn("failed to publish buffer update", slogError(err))
		}
	}
}

// save persists the narrative locally and forwards it to the backend when
// one is connected. The local store is authoritative; the backend send is
// best-effort.
func (s *Service) save(ctx context.Context, narrative, status string) error {
	sessionID := s.session.ID()

	if s.store != nil {
		if err := s.store.SaveProcedure(ctx, sessionID, s.cfg.ActorID, narrative, status); err != nil {
			return err
		}
	}

	if s.backend != nil && s.backend.Online() {
		if err := s.backend.SaveProcedure(narrative, status); err != nil {
			s.logger.Warn("failed to forward save to backend", slogError(err))
		}
	}

	req := protocol.SaveRequest{
		SessionID: sessionID,
		Narrative: narrative,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	if data, err := json.Marshal(req); err == nil {
		if err := s.bus.Conn().Publish(protocol.SubjectDictationSave, data); err != nil {
			s.logger.Warn("failed to publish save notification", slogError(err))
		}
	}
	return nil
}

func commandParams(cmd command.Command) map[string]string {
	params := map[string]string{}
	switch cmd.Kind {
	case command.KindInsertMacro:
		params["macro_name"] = cmd.Macro
	case command.KindSetField:
		params["field"] = cmd.Field
		params["value"] = cmd.Value
	case command.KindSetVesselField:
		params["vessel"] = cmd.Vessel
		params["property"] = cmd.Property
		params["value"] = cmd.Value
	}
	if len(params) == 0 {
		return nil
	}
	return params
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
