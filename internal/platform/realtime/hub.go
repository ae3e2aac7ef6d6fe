package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// 全購読者への一斉配信のみ。配信保証も履歴も持たない
// （UIの再取得トリガーであって記録系ではない）
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// socket越しの打刻メッセージ。RESTの POST /attendance と同じ意味
type PunchMessage struct {
	EmployeeID string     `json:"employeeId"`
	Type       string     `json:"type"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// attendance パッケージとの循環importを避けるため、打刻処理は関数で注入する
type PunchHandler func(ctx context.Context, msg PunchMessage) (any, error)

type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	punch PunchHandler
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
	}
}

func (h *Hub) SetPunchHandler(fn PunchHandler) { h.punch = fn }

// Run: 購読者の管理と配信を1本のループで直列化する
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// 書き込みが詰まっている購読者は切る
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Publish: 変更イベントを接続中の全クライアントへ流す。fire-and-forget
func (h *Hub) Publish(event string, payload any) {
	buf, err := json.Marshal(Event{Event: event, Data: payload})
	if err != nil {
		log.Printf("[WARN] realtime: marshal %s failed: %v", event, err)
		return
	}
	select {
	case h.broadcast <- buf:
	default:
		log.Printf("[WARN] realtime: broadcast buffer full, dropping %s", event)
	}
}
