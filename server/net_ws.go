package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃旧消息（防止阻塞房间协程）
	}
}

// Close 关闭底层连接与发送队列（可重复调用）
func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump 读取客户端事件并分发到对应房间
// 除 joinRoom 外的事件对未知房间一律静默忽略
func (c *ClientConn) readPump(rm *RoomManager, playerID PlayerID) {
	defer c.ws.Close()
	// 读泵退出即视为断开，从所在房间移除该玩家
	defer rm.Disconnect(playerID)
	c.ws.SetReadLimit(1 << 20) // 1MB
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var ev EventMessage
		if err := json.Unmarshal(payload, &ev); err != nil {
			continue
		}
		switch ev.Type {
		case EventJoinRoom:
			room := rm.GetOrCreateRoom(ev.RoomID)
			room.Join(playerID, ev.Name, c)
		case EventStartRound:
			if room, ok := rm.GetRoom(ev.RoomID); ok {
				room.StartRound()
			}
		case EventBuzz:
			if room, ok := rm.GetRoom(ev.RoomID); ok {
				room.Buzz(playerID)
			}
		case EventUpdateScore:
			if room, ok := rm.GetRoom(ev.RoomID); ok {
				room.UpdateScore(PlayerID(ev.PlayerID), ev.Points)
			}
		case EventSetScore:
			if room, ok := rm.GetRoom(ev.RoomID); ok {
				room.SetScore(PlayerID(ev.PlayerID), ev.Score)
			}
		case EventGetLeaderboard:
			// 排行榜查同步完成、只回给请求方，不打扰房间协程
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			records, err := rm.Leaderboard(ctx, ev.RoomID)
			cancel()
			if err != nil {
				Log.Warnf("leaderboard query failed: room=%s err=%v", ev.RoomID, err)
				continue
			}
			c.Enqueue(leaderboardMessage(records))
		default:
			// 未知事件类型：丢弃
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?player=alice
// 房间在收到 joinRoom 事件时才建立，连接本身不绑定房间
func (m *RoomManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		http.Error(w, "missing player query", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	client := NewClientConn(ws)
	Log.Infof("client connected: %s", playerID)

	go client.writePump()
	go client.readPump(m, PlayerID(playerID))
}
