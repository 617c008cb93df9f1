package server

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// PlayerRecord 持久层中的玩家记录（排行榜的数据来源）
type PlayerRecord struct {
	ParticipantID string
	Name          string
	RoomID        string
	Score         int
}

// PlayerStore 玩家记录的持久化接口
// 实时对局以内存状态为准，这里只做最终一致的镜像与排行榜查询
type PlayerStore interface {
	CreateRoom(ctx context.Context, roomID string) error
	CreatePlayer(ctx context.Context, rec PlayerRecord) error
	IncrementScore(ctx context.Context, participantID string, delta int) error
	SetScore(ctx context.Context, participantID string, value int) error
	DeletePlayer(ctx context.Context, participantID string) error
	TopPlayersByRoom(ctx context.Context, roomID string, n int) ([]PlayerRecord, error)
}

// SQLiteStore 基于 SQLite 的 PlayerStore 实现（纯 Go 驱动，免 CGO）
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore 打开（或创建）SQLite 库并建表
// WAL 模式 + busy_timeout，避免写协程与排行榜查询互相卡死
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate 建表（幂等），表结构刻意保持最小
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS players (
	participant_id TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	room_id        TEXT NOT NULL,
	score          INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_players_room_score ON players(room_id, score DESC);
CREATE TABLE IF NOT EXISTS rooms (
	room_id    TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);`
	_, err := s.db.Exec(ddl)
	return err
}

// Close 释放底层数据库
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) CreateRoom(ctx context.Context, roomID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO rooms(room_id, created_at) VALUES (?, ?)`,
		roomID, time.Now().UTC().UnixMilli())
	return err
}

func (s *SQLiteStore) CreatePlayer(ctx context.Context, rec PlayerRecord) error {
	// 同一连接重复加入按覆盖处理，与内存侧“最后一次 join 生效”一致
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players(participant_id, name, room_id, score) VALUES (?, ?, ?, ?)
		 ON CONFLICT(participant_id) DO UPDATE SET name=excluded.name, room_id=excluded.room_id, score=excluded.score`,
		rec.ParticipantID, rec.Name, rec.RoomID, rec.Score)
	return err
}

func (s *SQLiteStore) IncrementScore(ctx context.Context, participantID string, delta int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE players SET score = score + ? WHERE participant_id = ?`, delta, participantID)
	return err
}

func (s *SQLiteStore) SetScore(ctx context.Context, participantID string, value int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE players SET score = ? WHERE participant_id = ?`, value, participantID)
	return err
}

func (s *SQLiteStore) DeletePlayer(ctx context.Context, participantID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM players WHERE participant_id = ?`, participantID)
	return err
}

// TopPlayersByRoom 查询某房间得分前 n 名（降序）
func (s *SQLiteStore) TopPlayersByRoom(ctx context.Context, roomID string, n int) ([]PlayerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, name, room_id, score FROM players
		 WHERE room_id = ? ORDER BY score DESC LIMIT ?`, roomID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerRecord
	for rows.Next() {
		var rec PlayerRecord
		if err := rows.Scan(&rec.ParticipantID, &rec.Name, &rec.RoomID, &rec.Score); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// storeTask 一次异步持久化动作；name 仅用于日志定位
type storeTask struct {
	name string
	fn   func(ctx context.Context) error
}

// StoreWriter 异步写队列：状态变更先广播、落库排队执行
// 写失败只记日志与计数，绝不回滚内存状态（内存为对局权威）
type StoreWriter struct {
	store PlayerStore
	tasks chan storeTask
	done  chan struct{}

	errors  int64
	dropped int64
}

// NewStoreWriter 创建并启动写协程
func NewStoreWriter(store PlayerStore) *StoreWriter {
	w := &StoreWriter{
		store: store,
		tasks: make(chan storeTask, 256), // 足够缓冲，避免落库抖动影响对局
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *StoreWriter) run() {
	defer close(w.done)
	for t := range w.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := t.fn(ctx); err != nil {
			atomic.AddInt64(&w.errors, 1)
			Log.Warnf("store write failed: op=%s err=%v", t.name, err)
		}
		cancel()
	}
}

// Submit 入队一个落库任务（非阻塞，满则丢弃并计数）
func (w *StoreWriter) Submit(name string, fn func(ctx context.Context) error) {
	select {
	case w.tasks <- storeTask{name: name, fn: fn}:
	default:
		// 丢弃：落库是尽力而为，不允许反压进对局线程
		atomic.AddInt64(&w.dropped, 1)
		Log.Warnf("store write dropped: op=%s", name)
	}
}

// Close 停止接收并等待积压任务写完
func (w *StoreWriter) Close() {
	close(w.tasks)
	<-w.done
}

// Snapshot 返回写队列的运行计数，便于 HTTP 输出
func (w *StoreWriter) Snapshot() map[string]any {
	return map[string]any{
		"errors":  atomic.LoadInt64(&w.errors),
		"dropped": atomic.LoadInt64(&w.dropped),
	}
}
