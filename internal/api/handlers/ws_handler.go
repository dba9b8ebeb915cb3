package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/smartshopai/smartshop/internal/services"
	"github.com/smartshopai/smartshop/internal/utils"
)

type WSHandler struct {
	chat     services.ChatService
	upgrader websocket.Upgrader
}

func NewWSHandler(chat services.ChatService) *WSHandler {
	return &WSHandler{
		chat: chat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type      string `json:"type"` // "message"
	Text      string `json:"text"`
	ImageData string `json:"image_data"`
}

type wsServerMsg struct {
	Type string `json:"type"` // "turn" | "error"

	Turn    *services.TranscriptUpdate `json:"turn,omitempty"`
	Code    utils.Code                 `json:"code,omitempty"`
	Message string                     `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// ChatWS streams every appended conversation turn to the client and
// accepts user messages over the same connection.
func (h *WSHandler) ChatWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates, unsubscribe := h.chat.Subscribe(userID)
	defer unsubscribe()

	// reader: WS -> chat pipeline
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeInvalidArgument, Message: "invalid json"})
				continue
			}

			switch msg.Type {
			case "message":
				// The settled turn arrives through the subscription; only
				// rejections need a direct reply.
				if _, serr := h.chat.Submit(ctx, userID, msg.Text, msg.ImageData); serr != nil {
					out := wsServerMsg{Type: "error", Code: utils.CodeInternal, Message: "message failed"}
					var ae *utils.AppError
					if errors.As(serr, &ae) {
						out.Code = ae.Code
						out.Message = ae.Message
					}
					_ = wc.writeJSON(out)
				}

			default:
				_ = wc.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeInvalidArgument, Message: "unknown message type"})
			}
		}
	}()

	// writer: transcript updates -> WS
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case u, open := <-updates:
			if !open {
				return
			}
			if werr := wc.writeJSON(wsServerMsg{Type: "turn", Turn: &u}); werr != nil {
				return
			}
		}
	}
}
