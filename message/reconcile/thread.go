package reconcile

import (
	"sort"

	"github.com/ridhamxdev/Docent-sub000/message/repo/model"
)

// ThreadView 是打开的单个线程的消息序列视图
// 乐观本地回显和服务端实时事件可能重复到达同一逻辑消息，按 id 去重，
// 服务端记录总是替换同 id 的旧条目（replace 而不是 merge）
type ThreadView struct {
	viewerID       string
	counterpartyID string
	msgs           []*model.Message
	byID           map[string]int
}

func NewThreadView(viewerID, counterpartyID string) *ThreadView {
	return &ThreadView{
		viewerID:       viewerID,
		counterpartyID: counterpartyID,
		byID:           make(map[string]int),
	}
}

func (t *ThreadView) inThread(m *model.Message) bool {
	return (m.SenderID == t.viewerID && m.ReceiverID == t.counterpartyID) ||
		(m.SenderID == t.counterpartyID && m.ReceiverID == t.viewerID)
}

// Reset 用全量消息重建线程视图，线程外的消息被丢弃
func (t *ThreadView) Reset(msgs []*model.Message) {
	t.msgs = t.msgs[:0]
	t.byID = make(map[string]int)
	for _, m := range msgs {
		t.Append(m)
	}
}

// Append 合并一条消息：不属于本线程返回 false；
// 同 id 已存在则替换，否则插入并按 createdAt 升序重排
func (t *ThreadView) Append(m *model.Message) bool {
	if !t.inThread(m) {
		return false
	}
	if i, ok := t.byID[m.ID]; ok {
		t.msgs[i] = m
	} else {
		t.msgs = append(t.msgs, m)
	}
	sort.SliceStable(t.msgs, func(i, j int) bool {
		return t.msgs[i].CreatedAt < t.msgs[j].CreatedAt
	})
	for i, msg := range t.msgs {
		t.byID[msg.ID] = i
	}
	return true
}

// ApplyReadReceipt 处理对端的 messagesRead：把 viewer 发给对端的消息置为已读
// 返回实际翻转的条数，事件里的 count 只作提示
func (t *ThreadView) ApplyReadReceipt(readerID string) int {
	if readerID != t.counterpartyID {
		return 0
	}
	n := 0
	for _, m := range t.msgs {
		if m.SenderID == t.viewerID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n
}

func (t *ThreadView) Messages() []*model.Message {
	return t.msgs
}

func (t *ThreadView) Len() int {
	return len(t.msgs)
}
