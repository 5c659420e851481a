package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Event 实时通道上的事件封包
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

const (
	EventNewMessage   = "newMessage"
	EventMessagesRead = "messagesRead"
	// 客户端连接后必须先发送 join 声明身份
	CommandJoin = "join"
)

// Channel 是一条活跃的双向连接（一个打开的设备/页签对应一条）
// 投递是非阻塞的：缓冲满了就丢，离线补偿靠客户端重连后的全量拉取
type Channel struct {
	id   string
	send chan Event
	done chan struct{}
	once sync.Once
}

func NewChannel(buffer int) *Channel {
	if buffer <= 0 {
		buffer = 32
	}
	return &Channel{
		id:   uuid.NewString(),
		send: make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

func (c *Channel) ID() string { return c.id }

// Deliver 尝试投递一个事件，通道已关闭或缓冲已满时返回 false
func (c *Channel) Deliver(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Events 供写协程消费
func (c *Channel) Events() <-chan Event { return c.send }

func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) Close() {
	c.once.Do(func() { close(c.done) })
}
