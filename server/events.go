package server

import "encoding/json"

// 入站事件的简单 JSON 结构（WebSocket 文本消息）
// 示例：{"type":"buzz","roomId":"room-1"}
// 字段按事件类型取用，多余字段忽略；无法解析的消息直接丢弃
type EventMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Name   string `json:"name,omitempty"`

	// updateScore / setScore 指定的目标玩家与数值
	PlayerID string `json:"playerId,omitempty"`
	Points   int    `json:"points,omitempty"`
	Score    int    `json:"score,omitempty"`
}

// 事件类型常量，与客户端协议一一对应
const (
	EventJoinRoom       = "joinRoom"
	EventStartRound     = "startRound"
	EventBuzz           = "buzz"
	EventUpdateScore    = "updateScore"
	EventSetScore       = "setScore"
	EventGetLeaderboard = "getLeaderboard"
)

// 出站消息统一为 {"type":...} 外加载荷，便于客户端按 type 分发

func rosterMessage(players []PlayerState) []byte {
	payload := struct {
		Type    string        `json:"type"`
		Players []PlayerState `json:"players"`
	}{Type: "playersUpdated", Players: players}
	b, _ := json.Marshal(payload)
	return b
}

func roundStartedMessage() []byte {
	b, _ := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: "roundStarted"})
	return b
}

func buzzAcceptedMessage() []byte {
	b, _ := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: "buzzAccepted"})
	return b
}

func buzzResetMessage() []byte {
	b, _ := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: "buzzReset"})
	return b
}

func leaderboardMessage(records []PlayerRecord) []byte {
	entries := make([]PlayerState, 0, len(records))
	for _, rec := range records {
		entries = append(entries, PlayerState{ID: rec.ParticipantID, Name: rec.Name, Score: rec.Score})
	}
	payload := struct {
		Type    string        `json:"type"`
		Players []PlayerState `json:"players"`
	}{Type: "leaderboard", Players: entries}
	b, _ := json.Marshal(payload)
	return b
}
