package server

import (
	"context"
	"sync"
	"time"
)

// RoomManager 管理多个房间的生命周期，并持有各房间共享的依赖
// 房间之间完全独立，互不加锁；这里的锁只保护注册表本身
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	store  PlayerStore
	writer *StoreWriter

	penalty         time.Duration
	leaderboardSize int
}

// NewRoomManager 创建房间管理器
func NewRoomManager(store PlayerStore, writer *StoreWriter, cfg Config) *RoomManager {
	return &RoomManager{
		rooms:           make(map[string]*Room),
		store:           store,
		writer:          writer,
		penalty:         cfg.BuzzPenalty(),
		leaderboardSize: cfg.LeaderboardSize,
	}
}

// GetOrCreateRoom 获取或创建房间，并确保房间协程已启动
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		r = NewRoom(id, m.writer, m.penalty)
		m.rooms[id] = r
		r.Start()
		roomID := id
		m.writer.Submit("create room", func(ctx context.Context) error {
			return m.writer.store.CreateRoom(ctx, roomID)
		})
		Log.Infof("room created: %s", id)
	}
	return r
}

// GetRoom 只查不建；未知房间的事件由调用方静默忽略
func (m *RoomManager) GetRoom(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Disconnect 处理连接断开：逐房间查找该玩家，命中一个即止
// 标识在同一时刻只会属于一个房间，多余的扫描没有意义
func (m *RoomManager) Disconnect(id PlayerID) {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	for _, r := range rooms {
		if r.RemovePlayer(id) {
			return
		}
	}
}

// Leaderboard 查询某房间的排行榜（得分降序，至多 leaderboardSize 条）
// 与其他落库操作不同，这一步必须同步完成才能回包
func (m *RoomManager) Leaderboard(ctx context.Context, roomID string) ([]PlayerRecord, error) {
	return m.store.TopPlayersByRoom(ctx, roomID, m.leaderboardSize)
}
