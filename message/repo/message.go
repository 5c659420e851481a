package repo

import (
	"context"
	"errors"

	"github.com/ridhamxdev/Docent-sub000/message/repo/model"
)

// ErrMessageNotFound 指定 id 的消息不存在
var ErrMessageNotFound = errors.New("message not found")

// MessageRepo 消息存储适配器
// ListTouching 返回参与方包含 userID 的全部消息，顺序不作保证，由调用方排序
// Patch 只允许修改可变字段（目前仅 read），对相同值重复应用是无副作用的
type MessageRepo interface {
	Append(ctx context.Context, m *model.Message) (*model.Message, error)
	ListTouching(ctx context.Context, userID string) ([]*model.Message, error)
	Patch(ctx context.Context, id string, fields map[string]interface{}) error
	Close() error
}
