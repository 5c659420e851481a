package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ridhamxdev/Docent-sub000/message/repo/model"
)

// InitDB 初始化数据库连接
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	// 自动迁移
	if err := db.AutoMigrate(&model.Message{}); err != nil {
		return nil, fmt.Errorf("fail to migrate messages table:%w", err)
	}
	return db, nil
}

// postgresRepo 带索引的存储实现，与 pebbleRepo 共用同一接口
// 查询走 sender_id/receiver_id 索引而不是全表扫描
type postgresRepo struct {
	db *gorm.DB
}

func NewPostgresRepo(db *gorm.DB) MessageRepo {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Append(ctx context.Context, m *model.Message) (*model.Message, error) {
	stored := *m
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UnixMilli()
	stored.Read = false
	if err := r.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, fmt.Errorf("fail to save message:%w", err)
	}
	return &stored, nil
}

func (r *postgresRepo) ListTouching(ctx context.Context, userID string) ([]*model.Message, error) {
	var out []*model.Message
	if err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("fail to list messages:%w", err)
	}
	return out, nil
}

func (r *postgresRepo) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	tmp := model.Message{}
	if err := applyFields(&tmp, fields); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&model.Message{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("fail to patch message %s:%w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Message{}).Where("id = ?", id).Count(&count).Error; err == nil && count == 0 {
			return ErrMessageNotFound
		}
	}
	return nil
}

func (r *postgresRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
