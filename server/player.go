package server

// PlayerID 表示玩家唯一标识（同一房间内同一时刻不重复）
type PlayerID string

// ClientSink 是向单个客户端投递消息的发送端抽象
// 生产实现为 ClientConn（WebSocket 写协程），测试可注入伪实现
type ClientSink interface {
	Enqueue(b []byte)
	Close()
}

// PlayerState 为广播给客户端的轻量状态
type PlayerState struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Player 房间内的玩家实体（服务端权威状态）
// 加入时创建、断开时移除；持久层只是最终一致的镜像
type Player struct {
	ID    PlayerID
	Name  string
	Score int

	Conn ClientSink // 网络连接的发送端（写协程）
}
