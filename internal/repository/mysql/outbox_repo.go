package mysql

import (
	"context"

	"Lee_Social/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

// List outbox查询，按id顺序取待投递的记录
func (r *OutboxRepository) List(ctx context.Context, batchSize int) ([]model.SocialOutbox, error) {
	var list []model.SocialOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, wrapErr(err)
	}
	return list, nil
}

// RetryUpdate 投递失败记一次重试，达到上限后标记为失败不再投递。delivered 一并保存，已成功的发送方下次跳过
func (r *OutboxRepository) RetryUpdate(ctx context.Context, ob *model.SocialOutbox, maxRetry int) error {
	retry := ob.Retry + 1
	status := model.OutboxPending
	if retry >= maxRetry {
		status = model.OutboxFailed
	}
	return wrapErr(r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id = ?", ob.ID).
		Updates(map[string]any{"status": status, "retry": retry, "delivered": ob.Delivered}).Error)
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return wrapErr(r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error)
}

// CountByStatus 监控用
func (r *OutboxRepository) CountByStatus(ctx context.Context, status int8) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).
		Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, wrapErr(err)
	}
	return n, nil
}
