package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ridhamxdev/Docent-sub000/message/repo/model"
)

func newTestRepo(t *testing.T) MessageRepo {
	t.Helper()
	r, err := NewPebbleRepo(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestPebbleRepo_AppendAssignsServerFields(t *testing.T) {
	r := newTestRepo(t)
	stored, err := r.Append(context.Background(), &model.Message{
		SenderID: "a", ReceiverID: "b", Content: "hi",
		// 调用方试图预置的字段会被服务端覆盖
		ID: "client-id", Read: true, CreatedAt: 42,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "client-id", stored.ID)
	assert.False(t, stored.Read)
	assert.Greater(t, stored.CreatedAt, int64(42))
}

func TestPebbleRepo_ListTouchingFilters(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	_, err := r.Append(ctx, &model.Message{SenderID: "a", ReceiverID: "b", Content: "1"})
	require.NoError(t, err)
	_, err = r.Append(ctx, &model.Message{SenderID: "b", ReceiverID: "a", Content: "2"})
	require.NoError(t, err)
	_, err = r.Append(ctx, &model.Message{SenderID: "c", ReceiverID: "d", Content: "3"})
	require.NoError(t, err)

	msgs, err := r.ListTouching(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	msgs, err = r.ListTouching(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPebbleRepo_ListPreservesInsertionOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 5; i++ {
		m, err := r.Append(ctx, &model.Message{SenderID: "a", ReceiverID: "b", Content: "x"})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	msgs, err := r.ListTouching(ctx, "a")
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		assert.Equal(t, ids[i], m.ID)
	}
}

func TestPebbleRepo_PatchRead(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	stored, err := r.Append(ctx, &model.Message{SenderID: "a", ReceiverID: "b", Content: "hi"})
	require.NoError(t, err)

	require.NoError(t, r.Patch(ctx, stored.ID, map[string]interface{}{"read": true}))
	// 重复应用同样的 patch 是无副作用的
	require.NoError(t, r.Patch(ctx, stored.ID, map[string]interface{}{"read": true}))

	msgs, err := r.ListTouching(ctx, "b")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)
	// 其余字段原样保留
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, stored.CreatedAt, msgs[0].CreatedAt)
}

func TestPebbleRepo_AppendWritesRecordAndIndexTogether(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	// 每条消息写入后 id 索引必须立刻可用，Patch 按 id 反查不能失败
	for i := 0; i < 10; i++ {
		stored, err := r.Append(ctx, &model.Message{SenderID: "a", ReceiverID: "b", Content: "x"})
		require.NoError(t, err)
		require.NoError(t, r.Patch(ctx, stored.ID, map[string]interface{}{"read": true}))
	}
	msgs, err := r.ListTouching(ctx, "b")
	require.NoError(t, err)
	require.Len(t, msgs, 10)
	for _, m := range msgs {
		assert.True(t, m.Read)
	}
}

func TestPebbleRepo_PatchUnknownID(t *testing.T) {
	r := newTestRepo(t)
	err := r.Patch(context.Background(), "missing", map[string]interface{}{"read": true})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestPebbleRepo_PatchImmutableField(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	stored, err := r.Append(ctx, &model.Message{SenderID: "a", ReceiverID: "b", Content: "hi"})
	require.NoError(t, err)
	assert.Error(t, r.Patch(ctx, stored.ID, map[string]interface{}{"content": "edited"}))
}
