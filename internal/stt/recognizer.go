package stt

import (
	"context"
)

// TranscriptResult captures recognizer output.
type TranscriptResult struct {
	Text       string
	Confidence float64
}

// Request carries one utterance worth of PCM plus the domain vocabulary the
// recognizer may use as a biasing prompt.
type Request struct {
	PCM           []byte
	SampleRate    int
	Channels      int
	Final         bool
	InitialPrompt string
}

// Recognizer abstracts STT backends. The engine only ever sees the finalized
// text that comes back.
type Recognizer interface {
	Transcribe(ctx context.Context, req Request) (TranscriptResult, error)
}
