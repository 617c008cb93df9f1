package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	RoundsStarted    int64 // 开始的抢答轮次数
	BuzzesAccepted   int64 // 抢答成功（成为本轮第一）的次数
	BuzzesRejected   int64 // 因轮次未开或已有人抢到而被忽略的抢答数
	PenaltiesApplied int64 // 兜底计时器触发并实际扣分的次数
	PenaltiesSkipped int64 // 计时器触发但玩家已离开、跳过扣分的次数
	Broadcasts       int64 // 向房间广播消息的次数
}

func (m *RoomMetrics) IncRoundStarted()   { atomic.AddInt64(&m.RoundsStarted, 1) }
func (m *RoomMetrics) IncBuzzAccepted()   { atomic.AddInt64(&m.BuzzesAccepted, 1) }
func (m *RoomMetrics) IncBuzzRejected()   { atomic.AddInt64(&m.BuzzesRejected, 1) }
func (m *RoomMetrics) IncPenaltyApplied() { atomic.AddInt64(&m.PenaltiesApplied, 1) }
func (m *RoomMetrics) IncPenaltySkipped() { atomic.AddInt64(&m.PenaltiesSkipped, 1) }
func (m *RoomMetrics) IncBroadcast()      { atomic.AddInt64(&m.Broadcasts, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	return map[string]any{
		"rounds_started":    atomic.LoadInt64(&m.RoundsStarted),
		"buzzes_accepted":   atomic.LoadInt64(&m.BuzzesAccepted),
		"buzzes_rejected":   atomic.LoadInt64(&m.BuzzesRejected),
		"penalties_applied": atomic.LoadInt64(&m.PenaltiesApplied),
		"penalties_skipped": atomic.LoadInt64(&m.PenaltiesSkipped),
		"broadcasts":        atomic.LoadInt64(&m.Broadcasts),
	}
}
