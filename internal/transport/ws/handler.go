package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"voicetrim-server-go/internal/app/services"
	"voicetrim-server-go/internal/domain/session"
	"voicetrim-server-go/internal/platform/logging"
)

// inboundMessage is the envelope clients send over the socket.
type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type helloMessage struct {
	Type        string  `json:"type"`
	SessionID   string  `json:"session_id"`
	MaxDuration float64 `json:"max_duration"`
}

type replyMessage struct {
	Type           string  `json:"type"`
	SessionID      string  `json:"session_id"`
	Text           string  `json:"text"`
	Verdict        string  `json:"verdict"`
	Duration       float64 `json:"duration"`
	DurationBefore float64 `json:"duration_before,omitempty"`
	Attempts       int     `json:"attempts,omitempty"`
	Updated        bool    `json:"updated"`
}

type audioMessage struct {
	Type   string `json:"type"`
	Format string `json:"format"`
	Data   string `json:"data"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ChatHandler speaks the chat protocol over one websocket connection: a hello
// on connect, then one reply plus one audio frame per inbound chat message.
type ChatHandler struct {
	sessionID    string
	conn         *Connection
	conversation *services.ConversationService
	logger       *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   atomic.Bool
}

// NewChatHandler builds the handler for an upgraded connection.
func NewChatHandler(parent context.Context, conn *Connection, conversation *services.ConversationService, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	// The parent is usually the upgrade request context, which ends once the
	// HTTP handler returns. Keep its values but not its cancellation.
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &ChatHandler{
		sessionID:    session.NewID(),
		conn:         conn,
		conversation: conversation,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// GetSessionID returns the identifier assigned to this connection.
func (h *ChatHandler) GetSessionID() string {
	return h.sessionID
}

// Handle runs the read loop until the client disconnects.
func (h *ChatHandler) Handle() {
	hello := helloMessage{
		Type:        "hello",
		SessionID:   h.sessionID,
		MaxDuration: h.conversation.Governor().Policy().MaxDuration,
	}
	if err := h.conn.WriteJSON(hello); err != nil {
		h.logger.WarnTag("WebSocket", "hello failed for %s: %v", h.sessionID, err)
		return
	}

	for {
		if h.ctx.Err() != nil {
			return
		}

		messageType, payload, err := h.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WarnTag("WebSocket", "read failed for %s: %v", h.sessionID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.sendError("invalid message format")
			continue
		}

		switch msg.Type {
		case "chat":
			h.handleChat(msg.Text)
		case "ping":
			_ = h.conn.WriteJSON(map[string]string{"type": "pong"})
		default:
			h.sendError("unsupported message type: " + msg.Type)
		}
	}
}

func (h *ChatHandler) handleChat(text string) {
	if text == "" {
		h.sendError(`the "text" field is required`)
		return
	}

	result, err := h.conversation.HandleUtterance(h.ctx, h.sessionID, text)
	if err != nil {
		h.logger.ErrorTag("WebSocket", "chat failed for %s: %v", h.sessionID, err)
		h.sendError("chat failed")
		return
	}

	reply := replyMessage{
		Type:           "reply",
		SessionID:      result.SessionID,
		Text:           result.Reply,
		Verdict:        string(result.Verdict),
		Duration:       result.Duration,
		DurationBefore: result.DurationBefore,
		Attempts:       result.Attempts,
		Updated:        result.Updated,
	}
	if err := h.conn.WriteJSON(reply); err != nil {
		h.logger.WarnTag("WebSocket", "reply write failed for %s: %v", h.sessionID, err)
		return
	}

	if len(result.Audio) > 0 {
		audio := audioMessage{
			Type:   "audio",
			Format: "mp3",
			Data:   base64.StdEncoding.EncodeToString(result.Audio),
		}
		if err := h.conn.WriteJSON(audio); err != nil {
			h.logger.WarnTag("WebSocket", "audio write failed for %s: %v", h.sessionID, err)
		}
	}
}

func (h *ChatHandler) sendError(message string) {
	_ = h.conn.WriteJSON(errorMessage{Type: "error", Message: message})
}

// Close tears down the handler. Safe to call more than once.
func (h *ChatHandler) Close() {
	if !h.done.CompareAndSwap(false, true) {
		return
	}
	h.cancel()
}
