package server

import (
	"context"
	"sync/atomic"
	"time"
)

// 房间命令类型：所有状态变更都折算成命令，由房间协程串行执行
type cmdKind uint8

const (
	cmdJoin cmdKind = iota + 1
	cmdStartRound
	cmdBuzz
	cmdUpdateScore
	cmdSetScore
	cmdRemove
	cmdTimerFired
	cmdSnapshot
)

type command struct {
	kind   cmdKind
	player PlayerID
	name   string
	conn   ClientSink
	delta  int
	value  int
	gen    uint64 // cmdTimerFired 所属的计时器代次

	removed chan bool         // cmdRemove 的同步回执
	snap    chan RoomSnapshot // cmdSnapshot 的同步回执
}

// RoomSnapshot 房间状态的只读副本（监控与测试用）
type RoomSnapshot struct {
	Players     []PlayerState
	RoundActive bool
	FirstBuzz   PlayerID
}

// Room 房间：权威状态维护在内存，由单个协程串行推进
// 抢答判定（check-and-set）因此天然原子，无需再加锁
type Room struct {
	ID string

	players     []*Player // 加入顺序即名单顺序
	roundActive bool
	firstBuzz   PlayerID // 空串表示本轮尚无人抢到

	// 兜底惩罚计时器：同一时刻至多一个存活
	// 代次号用于丢弃 Stop 竞争后仍然送达的过期触发
	penaltyTimer *time.Timer
	timerGen     uint64

	penaltyMs int64 // 惩罚延迟（毫秒），admin 可热更新

	cmdCh   chan command
	writer  *StoreWriter
	metrics *RoomMetrics

	started bool
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(id string, writer *StoreWriter, penalty time.Duration) *Room {
	r := &Room{
		ID:      id,
		cmdCh:   make(chan command, 256), // 足够缓冲，避免网络读阻塞影响判定
		writer:  writer,
		metrics: &RoomMetrics{},
	}
	r.SetPenaltyDelay(penalty)
	return r
}

// Start 启动房间协程（重复调用无效果）
func (r *Room) Start() {
	if r.started {
		return
	}
	r.started = true
	go r.run()
}

func (r *Room) run() {
	for cmd := range r.cmdCh {
		r.apply(cmd)
	}
}

// ---- 对外入口：把事件折算成命令投入房间协程 ----

// Join 玩家加入（任意状态下都允许，不影响轮次）
func (r *Room) Join(id PlayerID, name string, conn ClientSink) {
	r.cmdCh <- command{kind: cmdJoin, player: id, name: name, conn: conn}
}

// StartRound 开启新一轮抢答
func (r *Room) StartRound() {
	r.cmdCh <- command{kind: cmdStartRound}
}

// Buzz 抢答；是否有效由房间协程内的状态判定
func (r *Room) Buzz(id PlayerID) {
	r.cmdCh <- command{kind: cmdBuzz, player: id}
}

// UpdateScore 给指定玩家加减分
func (r *Room) UpdateScore(id PlayerID, delta int) {
	r.cmdCh <- command{kind: cmdUpdateScore, player: id, delta: delta}
}

// SetScore 直接覆盖指定玩家分数
func (r *Room) SetScore(id PlayerID, value int) {
	r.cmdCh <- command{kind: cmdSetScore, player: id, value: value}
}

// RemovePlayer 移除玩家，返回该玩家是否曾在本房间
func (r *Room) RemovePlayer(id PlayerID) bool {
	done := make(chan bool, 1)
	r.cmdCh <- command{kind: cmdRemove, player: id, removed: done}
	return <-done
}

// Snapshot 取房间状态副本；同时可充当命令队列的同步屏障
func (r *Room) Snapshot() RoomSnapshot {
	ch := make(chan RoomSnapshot, 1)
	r.cmdCh <- command{kind: cmdSnapshot, snap: ch}
	return <-ch
}

// PenaltyDelay 当前惩罚延迟
func (r *Room) PenaltyDelay() time.Duration {
	return time.Duration(atomic.LoadInt64(&r.penaltyMs)) * time.Millisecond
}

// SetPenaltyDelay 热更新惩罚延迟（只影响之后新武装的计时器）
func (r *Room) SetPenaltyDelay(d time.Duration) {
	atomic.StoreInt64(&r.penaltyMs, d.Milliseconds())
}

// Metrics 房间运行指标
func (r *Room) Metrics() *RoomMetrics {
	return r.metrics
}

// ---- 以下均在房间协程内执行 ----

func (r *Room) apply(cmd command) {
	switch cmd.kind {
	case cmdJoin:
		r.applyJoin(cmd)
	case cmdStartRound:
		r.applyStartRound()
	case cmdBuzz:
		r.applyBuzz(cmd)
	case cmdUpdateScore:
		r.applyUpdateScore(cmd)
	case cmdSetScore:
		r.applySetScore(cmd)
	case cmdRemove:
		cmd.removed <- r.applyRemove(cmd)
	case cmdTimerFired:
		r.applyTimerFired(cmd)
	case cmdSnapshot:
		cmd.snap <- r.stateSnapshot()
	}
}

func (r *Room) applyJoin(cmd command) {
	p := &Player{ID: cmd.player, Name: cmd.name, Score: 0, Conn: cmd.conn}
	r.players = append(r.players, p)

	rec := PlayerRecord{ParticipantID: string(cmd.player), Name: cmd.name, RoomID: r.ID, Score: 0}
	r.writer.Submit("create player", func(ctx context.Context) error {
		return r.writer.store.CreatePlayer(ctx, rec)
	})
	r.broadcastRoster()
	Log.Infof("room %s: player joined id=%s name=%s", r.ID, cmd.player, cmd.name)
}

// applyStartRound 无条件重置抢答位并开轮
// 注意：不取消上一轮遗留的惩罚计时器，过期触发时自会按代次与在场情况处理
func (r *Room) applyStartRound() {
	r.firstBuzz = ""
	r.roundActive = true
	r.metrics.IncRoundStarted()
	r.broadcast(roundStartedMessage())
}

// applyBuzz 抢答判定核心：第一个通过检查的命令成为本轮赢家
func (r *Room) applyBuzz(cmd command) {
	if !r.roundActive || r.firstBuzz != "" {
		r.metrics.IncBuzzRejected()
		return
	}
	r.firstBuzz = cmd.player
	r.roundActive = false
	r.metrics.IncBuzzAccepted()

	// 只私发给赢家，其余人等 roundStarted/buzzReset
	if p := r.find(cmd.player); p != nil && p.Conn != nil {
		p.Conn.Enqueue(buzzAcceptedMessage())
	}

	// 至多一个存活计时器：先停旧再武装新，并推进代次
	if r.penaltyTimer != nil {
		r.penaltyTimer.Stop()
	}
	r.timerGen++
	gen := r.timerGen
	winner := cmd.player
	r.penaltyTimer = time.AfterFunc(r.PenaltyDelay(), func() {
		r.cmdCh <- command{kind: cmdTimerFired, player: winner, gen: gen}
	})
}

// applyTimerFired 兜底惩罚：赢家未被裁定则扣 1 分
// 赢家已断开时跳过扣分，但仍复位抢答位并广播
func (r *Room) applyTimerFired(cmd command) {
	if cmd.gen != r.timerGen {
		// Stop 之后仍送达的过期触发，直接丢弃
		return
	}
	r.penaltyTimer = nil

	if p := r.find(cmd.player); p != nil {
		p.Score--
		r.metrics.IncPenaltyApplied()
		pid := string(cmd.player)
		r.writer.Submit("penalty decrement", func(ctx context.Context) error {
			return r.writer.store.IncrementScore(ctx, pid, -1)
		})
		r.broadcastRoster()
	} else {
		r.metrics.IncPenaltySkipped()
	}

	r.firstBuzz = ""
	r.broadcast(buzzResetMessage())
}

func (r *Room) applyUpdateScore(cmd command) {
	p := r.find(cmd.player)
	if p == nil {
		return
	}
	p.Score += cmd.delta
	pid, delta := string(cmd.player), cmd.delta
	r.writer.Submit("increment score", func(ctx context.Context) error {
		return r.writer.store.IncrementScore(ctx, pid, delta)
	})
	r.broadcastRoster()
}

func (r *Room) applySetScore(cmd command) {
	p := r.find(cmd.player)
	if p == nil {
		return
	}
	p.Score = cmd.value
	pid, value := string(cmd.player), cmd.value
	r.writer.Submit("set score", func(ctx context.Context) error {
		return r.writer.store.SetScore(ctx, pid, value)
	})
	r.broadcastRoster()
}

func (r *Room) applyRemove(cmd command) bool {
	idx := -1
	for i, p := range r.players {
		if p.ID == cmd.player {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	p := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if p.Conn != nil {
		p.Conn.Close()
	}
	pid := string(cmd.player)
	r.writer.Submit("delete player", func(ctx context.Context) error {
		return r.writer.store.DeletePlayer(ctx, pid)
	})
	r.broadcastRoster()
	Log.Infof("room %s: player left id=%s", r.ID, cmd.player)
	return true
}

func (r *Room) find(id PlayerID) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) stateSnapshot() RoomSnapshot {
	players := make([]PlayerState, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, PlayerState{ID: string(p.ID), Name: p.Name, Score: p.Score})
	}
	return RoomSnapshot{Players: players, RoundActive: r.roundActive, FirstBuzz: r.firstBuzz}
}

// broadcastRoster 把当前名单（含分数）广播给所有玩家
func (r *Room) broadcastRoster() {
	r.broadcast(rosterMessage(r.stateSnapshot().Players))
}

func (r *Room) broadcast(b []byte) {
	for _, p := range r.players {
		if p.Conn != nil {
			p.Conn.Enqueue(b)
		}
	}
	r.metrics.IncBroadcast()
}
