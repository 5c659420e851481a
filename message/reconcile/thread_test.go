package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadView_OrdersByCreatedAt(t *testing.T) {
	// 按 createdAt 升序
	v := NewThreadView("bob", "alice")
	v.Reset(nil)
	v.Append(msg("2", "alice", "bob", 2000, false))
	v.Append(msg("1", "bob", "alice", 1000, false))
	v.Append(msg("3", "alice", "bob", 3000, false))

	msgs := v.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, "2", msgs[1].ID)
	assert.Equal(t, "3", msgs[2].ID)
}

func TestThreadView_DeduplicatesByID(t *testing.T) {
	// 乐观回显和实时事件同时到达只留一条
	v := NewThreadView("bob", "alice")
	m := msg("1", "bob", "alice", 1000, false)
	assert.True(t, v.Append(m))
	assert.True(t, v.Append(msg("1", "bob", "alice", 1000, false)))
	assert.Equal(t, 1, v.Len())
}

func TestThreadView_ConfirmedRecordReplaces(t *testing.T) {
	v := NewThreadView("bob", "alice")
	v.Append(msg("1", "bob", "alice", 1000, false))

	confirmed := msg("1", "bob", "alice", 1000, true)
	confirmed.Content = "hello"
	v.Append(confirmed)

	require.Equal(t, 1, v.Len())
	assert.Equal(t, "hello", v.Messages()[0].Content)
	assert.True(t, v.Messages()[0].Read)
}

func TestThreadView_IgnoresOtherThreads(t *testing.T) {
	v := NewThreadView("bob", "alice")
	assert.False(t, v.Append(msg("1", "carol", "bob", 1000, false)))
	assert.False(t, v.Append(msg("2", "alice", "carol", 1100, false)))
	assert.Equal(t, 0, v.Len())
}

func TestThreadView_BothDirectionsBelong(t *testing.T) {
	v := NewThreadView("bob", "alice")
	assert.True(t, v.Append(msg("1", "bob", "alice", 1000, false)))
	assert.True(t, v.Append(msg("2", "alice", "bob", 1100, false)))
	assert.Equal(t, 2, v.Len())
}

func TestThreadView_ApplyReadReceipt(t *testing.T) {
	v := NewThreadView("bob", "alice")
	v.Append(msg("1", "bob", "alice", 1000, false))
	v.Append(msg("2", "bob", "alice", 1100, false))
	v.Append(msg("3", "alice", "bob", 1200, false))

	// 对端读掉了 bob 发出的两条
	assert.Equal(t, 2, v.ApplyReadReceipt("alice"))
	assert.True(t, v.Messages()[0].Read)
	assert.True(t, v.Messages()[1].Read)
	// alice 发来的那条不动
	assert.False(t, v.Messages()[2].Read)

	// 幂等：重复回执不再翻转
	assert.Equal(t, 0, v.ApplyReadReceipt("alice"))
	// 别人的回执不影响本线程
	assert.Equal(t, 0, v.ApplyReadReceipt("carol"))
}
