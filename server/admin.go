package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// HandleAdminConfig 提供房间配置的读取与更新（热更新基本规则）
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func (m *RoomManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = "room-1"
	}
	room := m.GetOrCreateRoom(roomID)

	type cfg struct {
		BuzzPenaltyMs *int64 `json:"buzzPenaltyMs,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		ms := room.PenaltyDelay().Milliseconds()
		cur := cfg{BuzzPenaltyMs: &ms}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cur)
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.BuzzPenaltyMs != nil {
			room.SetPenaltyDelay(time.Duration(*body.BuzzPenaltyMs) * time.Millisecond)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		Log.Infof("config updated: room=%s buzzPenaltyMs=%d", roomID, room.PenaltyDelay().Milliseconds())
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出指定房间的运行指标与状态快照
// GET /metrics?room=room-1
func (m *RoomManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = "room-1"
	}
	room := m.GetOrCreateRoom(roomID)
	snap := room.Snapshot()
	payload := map[string]any{
		"room":        roomID,
		"players":     len(snap.Players),
		"roundActive": snap.RoundActive,
		"firstBuzz":   string(snap.FirstBuzz),
		"metrics":     room.Metrics().Snapshot(),
		"store":       m.writer.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
