package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vascribe-labs/vascribe-core/internal/config"
)

// Client pushes transcripts, parsed commands, and saved procedures to the
// command-center backend over a websocket. Everything here is best-effort:
// a backend that is down means offline mode, never a failed dictation.
type Client struct {
	cfg    config.BackendConfig
	log    *slog.Logger
	mu     sync.Mutex
	conn   *websocket.Conn
	online bool

	clientID string
	wg       sync.WaitGroup
}

type envelope struct {
	Type       string            `json:"type"`
	ClientType string            `json:"clientType,omitempty"`
	ClientID   string            `json:"clientId,omitempty"`
	Text       string            `json:"text,omitempty"`
	Command    string            `json:"command,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
	Narrative  string            `json:"narrative,omitempty"`
	Status     string            `json:"status,omitempty"`
	Message    string            `json:"message,omitempty"`
	Timestamp  int64             `json:"timestamp,omitempty"`
}

func NewClient(cfg config.BackendConfig, log *slog.Logger) *Client {
	return &Client{
		cfg: cfg,
		log: log.With(slog.String("component", "backend-client")),
	}
}

// Connect dials the backend and registers this client. A failed dial leaves
// the client in offline mode and returns the error for logging only; callers
// are expected to carry on.
func (c *Client) Connect(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: time.Duration(c.cfg.TimeoutMS) * time.Millisecond,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.log.Warn("backend unreachable, running in offline mode",
			slog.String("url", c.cfg.URL), slogError(err))
		return fmt.Errorf("dial backend: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.online = true
	c.mu.Unlock()

	if err := c.send(envelope{Type: "register", ClientType: c.cfg.ClientType}); err != nil {
		c.log.Warn("backend registration failed", slogError(err))
	}

	c.wg.Add(1)
	go c.listen()

	c.log.Info("connected to backend", slog.String("url", c.cfg.URL))
	return nil
}

// Online reports whether the backend link is up.
func (c *Client) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// SendTranscription forwards a raw transcript.
func (c *Client) SendTranscription(text string) error {
	return c.send(envelope{
		Type:      "voice_transcription",
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	})
}

// SendCommand forwards a parsed command with its parameters.
func (c *Client) SendCommand(kind string, params map[string]string) error {
	return c.send(envelope{
		Type:      "voice_command",
		Command:   kind,
		Params:    params,
		Timestamp: time.Now().UnixMilli(),
	})
}

// SaveProcedure hands the finished narrative plus completion tag to the
// backend store.
func (c *Client) SaveProcedure(narrative, status string) error {
	return c.send(envelope{
		Type:      "voice_command",
		Command:   "save_procedure",
		Narrative: narrative,
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *Client) send(msg envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.online || c.conn == nil {
		return fmt.Errorf("not connected to backend")
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) listen() {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			c.online = false
			c.mu.Unlock()
			c.log.Warn("backend connection closed", slogError(err))
			return
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg envelope) {
	switch msg.Type {
	case "registered":
		c.mu.Lock()
		c.clientID = msg.ClientID
		c.mu.Unlock()
		c.log.Info("registered with backend", slog.String("client_id", msg.ClientID))
	case "field_updated":
		c.log.Info("backend acknowledged field update")
	case "procedure_saved":
		c.log.Info("backend saved procedure", slog.String("message", msg.Message))
	default:
		c.log.Debug("backend message", slog.String("type", msg.Type))
	}
}

// Close tears the connection down.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.online = false
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	c.wg.Wait()
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
