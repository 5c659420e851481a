package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Registry 把用户 id 映射到其全部活跃通道（room）
// 显式服务对象，进程启动时构造一次并注入，不做包级单例
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Channel]struct{}
	log   *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]map[*Channel]struct{}),
		log:   log,
	}
}

// Join 把通道加入 userID 对应的 room
// 同一用户的多条通道全部保留，这是多端同步的基础
func (r *Registry) Join(userID string, ch *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[userID]
	if !ok {
		room = make(map[*Channel]struct{})
		r.rooms[userID] = room
	}
	room[ch] = struct{}{}
	r.log.Debug("channel joined", zap.String("user", userID), zap.String("channel", ch.ID()), zap.Int("room_size", len(room)))
}

// Leave 只移除给定通道，room 里其余通道不受影响
func (r *Registry) Leave(userID string, ch *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[userID]
	if !ok {
		return
	}
	delete(room, ch)
	if len(room) == 0 {
		delete(r.rooms, userID)
	}
}

// Emit 向 room 里的每条通道投递事件，返回成功投递的条数
// room 为空时静默返回：不排队、不报错、不重试，
// 消息本身的持久性由存储层负责，离线客户端重连后全量拉取补齐
func (r *Registry) Emit(userID, event string, payload interface{}) int {
	r.mu.RLock()
	room := r.rooms[userID]
	targets := make([]*Channel, 0, len(room))
	for ch := range room {
		targets = append(targets, ch)
	}
	r.mu.RUnlock()

	n := 0
	for _, ch := range targets {
		if ch.Deliver(Event{Event: event, Data: payload}) {
			n++
		} else {
			r.log.Warn("drop event for slow or closed channel",
				zap.String("user", userID), zap.String("event", event), zap.String("channel", ch.ID()))
		}
	}
	return n
}

// RoomSize 返回用户当前活跃通道数
func (r *Registry) RoomSize(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[userID])
}
