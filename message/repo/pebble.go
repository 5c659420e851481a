package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ridhamxdev/Docent-sub000/message/repo/model"
)

const (
	msgKeyPrefix = "msg:"
	idIdxPrefix  = "msgid:"
)

// pebbleRepo 基于 pebble 的消息存储：全量扫描 + 内存过滤
// 没有按参与方的二级索引，ListTouching 每次遍历整个 msg: 键区间
type pebbleRepo struct {
	db  *pebble.DB
	log *zap.Logger
	// 同一纳秒内写入多条消息时用于区分 key
	seq uint64
}

func NewPebbleRepo(path string, log *zap.Logger) (MessageRepo, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("fail to open pebble at %s:%w", path, err)
	}
	log.Info("pebble opened", zap.String("path", path))
	return &pebbleRepo{db: db, log: log}, nil
}

func (r *pebbleRepo) Close() error {
	return r.db.Close()
}

// 主键格式 msg:<unix_nano_padded>-<seq>，保证按插入时间有序
func (r *pebbleRepo) primaryKey(ts int64, s uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d-%06d", msgKeyPrefix, ts, s))
}

func (r *pebbleRepo) Append(ctx context.Context, m *model.Message) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now()
	stored := *m
	stored.ID = uuid.NewString()
	stored.CreatedAt = now.UnixMilli()
	stored.Read = false

	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("fail to marshal message:%w", err)
	}
	s := atomic.AddUint64(&r.seq, 1)
	key := r.primaryKey(now.UnixNano(), s)
	// 记录和 id 索引在同一个 batch 里落盘，中途崩溃不会留下 Patch 找不到的孤儿记录
	batch := r.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(key, data, nil); err != nil {
		return nil, fmt.Errorf("fail to save message:%w", err)
	}
	// id 索引指向主键，Patch 按 id 反查
	idxKey := []byte(idIdxPrefix + stored.ID)
	if err := batch.Set(idxKey, key, nil); err != nil {
		return nil, fmt.Errorf("fail to index message:%w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		r.log.Error("save message failed", zap.String("key", string(key)), zap.String("id", stored.ID), zap.Error(err))
		return nil, fmt.Errorf("fail to save message:%w", err)
	}
	return &stored, nil
}

func (r *pebbleRepo) ListTouching(ctx context.Context, userID string) ([]*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(msgKeyPrefix)
	iter, err := r.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("fail to open iterator:%w", err)
	}
	defer iter.Close()

	var out []*model.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m model.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			r.log.Warn("skip corrupt message record", zap.String("key", string(iter.Key())), zap.Error(err))
			continue
		}
		if m.Touches(userID) {
			out = append(out, &m)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("fail to scan messages:%w", err)
	}
	return out, nil
}

func (r *pebbleRepo) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idxKey := []byte(idIdxPrefix + id)
	pk, closer, err := r.db.Get(idxKey)
	if err != nil {
		if err == pebble.ErrNotFound {
			return ErrMessageNotFound
		}
		return fmt.Errorf("fail to look up message %s:%w", id, err)
	}
	key := append([]byte(nil), pk...)
	_ = closer.Close()

	val, closer, err := r.db.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return ErrMessageNotFound
		}
		return fmt.Errorf("fail to read message %s:%w", id, err)
	}
	var m model.Message
	uerr := json.Unmarshal(val, &m)
	_ = closer.Close()
	if uerr != nil {
		return fmt.Errorf("corrupt message record %s:%w", id, uerr)
	}
	if err := applyFields(&m, fields); err != nil {
		return err
	}
	data, err := json.Marshal(&m)
	if err != nil {
		return fmt.Errorf("fail to marshal message:%w", err)
	}
	if err := r.db.Set(key, data, pebble.Sync); err != nil {
		r.log.Error("patch message failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("fail to patch message %s:%w", id, err)
	}
	return nil
}

// applyFields 只接受可变字段，拒绝其余以保持消息不可变
func applyFields(m *model.Message, fields map[string]interface{}) error {
	for k, v := range fields {
		switch k {
		case "read":
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("field read expects bool, got %T", v)
			}
			m.Read = b
		default:
			return fmt.Errorf("field %s is immutable", k)
		}
	}
	return nil
}
