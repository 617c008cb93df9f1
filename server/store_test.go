package server

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreScoreLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := PlayerRecord{ParticipantID: "a", Name: "Alice", RoomID: "room-1", Score: 0}
	if err := s.CreatePlayer(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.IncrementScore(ctx, "a", 5); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := s.IncrementScore(ctx, "a", -2); err != nil {
		t.Fatalf("increment: %v", err)
	}

	top, err := s.TopPlayersByRoom(ctx, "room-1", 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 1 || top[0].Score != 3 {
		t.Fatalf("record = %+v, want score 3", top)
	}

	if err := s.SetScore(ctx, "a", 10); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.IncrementScore(ctx, "a", 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	top, _ = s.TopPlayersByRoom(ctx, "room-1", 10)
	if top[0].Score != 11 {
		t.Errorf("score = %d, want 11", top[0].Score)
	}

	if err := s.DeletePlayer(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	top, _ = s.TopPlayersByRoom(ctx, "room-1", 10)
	if len(top) != 0 {
		t.Errorf("records after delete = %+v, want none", top)
	}
}

func TestTopPlayersOrderLimitAndRoomScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// 12 人在 room-1，1 人在 room-2；分数与编号同步递增
	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		rec := PlayerRecord{ParticipantID: id, Name: id, RoomID: "room-1", Score: 0}
		if err := s.CreatePlayer(ctx, rec); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if err := s.SetScore(ctx, id, i); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}
	if err := s.CreatePlayer(ctx, PlayerRecord{ParticipantID: "zz", Name: "other", RoomID: "room-2", Score: 99}); err != nil {
		t.Fatalf("create zz: %v", err)
	}

	top, err := s.TopPlayersByRoom(ctx, "room-1", 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 10 {
		t.Fatalf("len = %d, want 10", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].Score > top[i-1].Score {
			t.Fatalf("scores not descending at %d: %d > %d", i, top[i].Score, top[i-1].Score)
		}
	}
	for _, rec := range top {
		if rec.RoomID != "room-1" {
			t.Errorf("record %s from room %s leaked into room-1 leaderboard", rec.ParticipantID, rec.RoomID)
		}
	}
	if top[0].Score != 11 {
		t.Errorf("top score = %d, want 11", top[0].Score)
	}
}

func TestCreatePlayerRejoinOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreatePlayer(ctx, PlayerRecord{ParticipantID: "a", Name: "Alice", RoomID: "room-1", Score: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// 同一连接再次 join：记录被覆盖而非报错
	if err := s.CreatePlayer(ctx, PlayerRecord{ParticipantID: "a", Name: "Alice2", RoomID: "room-2", Score: 0}); err != nil {
		t.Fatalf("re-create: %v", err)
	}
	top, err := s.TopPlayersByRoom(ctx, "room-2", 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 1 || top[0].Name != "Alice2" || top[0].Score != 0 {
		t.Errorf("record = %+v, want overwritten Alice2 with score 0", top)
	}
}

func TestCreateRoomIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateRoom(ctx, "room-1"); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if err := s.CreateRoom(ctx, "room-1"); err != nil {
		t.Errorf("second create room: %v, want nil", err)
	}
}
