package protocol

import "time"

// AudioFrame represents PCM audio data streamed from capture front ends.
type AudioFrame struct {
	SessionID  string `json:"session_id"`
	Sequence   int    `json:"sequence"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	PCM        []byte `json:"pcm"`
	Final      bool   `json:"final"`
}

// Transcript represents STT output broadcast on the bus. The dictation
// service only consumes finalized transcripts.
type Transcript struct {
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	Partial    bool      `json:"partial"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence,omitempty"`
}

// CommandEvent is the structured result of interpreting one utterance,
// published for any front end that wants to display it.
type CommandEvent struct {
	SessionID string            `json:"session_id"`
	Kind      string            `json:"kind"`
	Params    map[string]string `json:"params,omitempty"`
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

// BufferUpdate carries the narrative snapshot after every accepted
// utterance.
type BufferUpdate struct {
	SessionID string    `json:"session_id"`
	Narrative string    `json:"narrative"`
	Remaining []string  `json:"remaining,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveRequest hands the finished narrative plus a completion tag to the
// persistence side.
type SaveRequest struct {
	SessionID string    `json:"session_id"`
	Narrative string    `json:"narrative"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectAudioFramePrefix  = "audio.frame"
	SubjectTranscriptPartial = "stt.text.partial"
	SubjectTranscriptFinal   = "stt.text.final"
	SubjectDictationCommand  = "dictation.command"
	SubjectDictationBuffer   = "dictation.buffer"
	SubjectDictationSave     = "dictation.save"
)
