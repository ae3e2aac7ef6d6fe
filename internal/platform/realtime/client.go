package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"parlour-backend/internal/platform/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORSはHTTP層で制御済み。ここでは弾かない
	CheckOrigin: func(*http.Request) bool { return true },
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID string
	role   string
}

// ServeWS: GET /ws?token=... をwebsocketへupgradeする。
// RESTと同じBearerトークンで認証（queryかAuthorizationヘッダ）
func ServeWS(hub *Hub, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			h := c.GetHeader("Authorization")
			if parts := strings.SplitN(h, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = strings.TrimSpace(parts[1])
			}
		}
		id, err := auth.ParseToken(secret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token. Authentication failed."})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade が自分でエラーを書いている
			return
		}

		client := &Client{
			hub:    hub,
			conn:   conn,
			send:   make(chan []byte, 16),
			userID: id.UserID,
			role:   id.Role,
		}
		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// クライアント発のメッセージ。attendance:punch のみ受け付ける
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WARN] realtime: read error: %v", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Event != "attendance:punch" {
			continue
		}
		c.handlePunch(msg.Data)
	}
}

// handlePunch: socket経由の打刻。応答はRESTと同じ {success, data} / {success:false, error}
func (c *Client) handlePunch(raw json.RawMessage) {
	respond := func(payload any) {
		buf, err := json.Marshal(Event{Event: "attendance:punch:ack", Data: payload})
		if err != nil {
			return
		}
		select {
		case c.send <- buf:
		default:
		}
	}

	if c.hub.punch == nil {
		respond(map[string]any{"success": false, "error": "Internal server error"})
		return
	}

	var msg PunchMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		respond(map[string]any{"success": false, "error": "Invalid punch payload"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	data, err := c.hub.punch(ctx, msg)
	if err != nil {
		respond(map[string]any{"success": false, "error": err.Error()})
		return
	}
	respond(map[string]any{"success": true, "data": data})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
