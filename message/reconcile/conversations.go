package reconcile

import (
	"sort"

	"github.com/ridhamxdev/Docent-sub000/message/repo/model"
)

// 目录未解析出名字时的占位昵称
const PlaceholderName = "Unknown"

// 会话（Conversation）是派生聚合，不落库
// 以 viewer 视角按对方 id 聚合消息得到
type Conversation struct {
	CounterpartyID string         `json:"counterpartyId"`
	DisplayName    string         `json:"displayName"`
	LastMessage    *model.Message `json:"lastMessage"`
	LastMessageAt  int64          `json:"lastMessageAt"`
	UnreadCount    int            `json:"unreadCount"`
}

// BuildConversations 把无序消息列表折叠为会话列表（冷启动/手动刷新）
// 昵称取对方最近一条消息上的 senderName，取不到用占位名
// 返回结果按 lastMessageAt 降序，平局保持分组首次出现的顺序
func BuildConversations(viewerID string, msgs []*model.Message) []*Conversation {
	order, _ := foldConversations(viewerID, msgs)
	return order
}

// foldConversations 是折叠的内部实现，额外返回每个昵称来源消息自身的 createdAt
// 昵称来源和 lastMessage 可能不是同一条消息，增量合并时要按来源时间判断昵称新旧
func foldConversations(viewerID string, msgs []*model.Message) ([]*Conversation, map[string]int64) {
	index := make(map[string]*Conversation)
	nameAt := make(map[string]int64)
	var order []*Conversation

	for _, m := range msgs {
		otherID := m.Counterparty(viewerID)
		if otherID == "" {
			continue
		}
		conv, ok := index[otherID]
		if !ok {
			conv = &Conversation{
				CounterpartyID: otherID,
				DisplayName:    PlaceholderName,
			}
			index[otherID] = conv
			order = append(order, conv)
		}
		// 同 createdAt 时后写入的胜出（存储顺序）
		if conv.LastMessage == nil || m.CreatedAt >= conv.LastMessageAt {
			conv.LastMessage = m
			conv.LastMessageAt = m.CreatedAt
		}
		if m.ReceiverID == viewerID && !m.Read {
			conv.UnreadCount++
		}
		if m.SenderID == otherID && m.SenderName != "" && m.CreatedAt >= nameAt[otherID] {
			conv.DisplayName = m.SenderName
			nameAt[otherID] = m.CreatedAt
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].LastMessageAt > order[j].LastMessageAt
	})
	return order, nameAt
}

// ConversationList 维护单个 viewer 的会话聚合，支持实时事件增量合并
// 实时路径和轮询路径可能以任意先后到达，合并规则保证两者收敛到同一状态
type ConversationList struct {
	viewerID string
	items    []*Conversation
	index    map[string]*Conversation
	nameAt   map[string]int64
}

func NewConversationList(viewerID string) *ConversationList {
	return &ConversationList{
		viewerID: viewerID,
		index:    make(map[string]*Conversation),
		nameAt:   make(map[string]int64),
	}
}

// Reset 用全量消息重建聚合（冷启动、手动刷新、重连）
func (l *ConversationList) Reset(msgs []*model.Message) {
	l.items, l.nameAt = foldConversations(l.viewerID, msgs)
	l.index = make(map[string]*Conversation, len(l.items))
	for _, conv := range l.items {
		l.index[conv.CounterpartyID] = conv
	}
}

// ApplyMessage 把一条实时消息合并进聚合
// 对方是全新会话时返回 true，调用方应当全量重建而不是凭空拼一个条目
func (l *ConversationList) ApplyMessage(m *model.Message) (needRebuild bool) {
	otherID := m.Counterparty(l.viewerID)
	if otherID == "" {
		return false
	}
	conv, ok := l.index[otherID]
	if !ok {
		return true
	}
	// 实时事件刚刚落库，总是比聚合里已知的更新
	conv.LastMessage = m
	conv.LastMessageAt = m.CreatedAt
	if m.ReceiverID == l.viewerID && !m.Read {
		conv.UnreadCount++
	}
	if m.SenderID == otherID && m.SenderName != "" && m.CreatedAt >= l.nameAt[otherID] {
		conv.DisplayName = m.SenderName
		l.nameAt[otherID] = m.CreatedAt
	}
	sort.SliceStable(l.items, func(i, j int) bool {
		return l.items[i].LastMessageAt > l.items[j].LastMessageAt
	})
	return false
}

// MarkRead 本地清零未读数（viewer 打开线程并调用服务端 markRead 之后）
// 对端发来的 messagesRead 计数只是提示，不做精确扣减
func (l *ConversationList) MarkRead(counterpartyID string) {
	if conv, ok := l.index[counterpartyID]; ok {
		conv.UnreadCount = 0
	}
}

func (l *ConversationList) Items() []*Conversation {
	return l.items
}

// Get 返回指定对方的会话，不存在时为 nil
func (l *ConversationList) Get(counterpartyID string) *Conversation {
	return l.index[counterpartyID]
}
