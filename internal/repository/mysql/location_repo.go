package mysql

import (
	"context"
	"errors"

	"Lee_Social/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LocationRepository struct {
	DB *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{DB: db}
}

// Get 没有上报过位置时返回 nil, nil
func (r *LocationRepository) Get(ctx context.Context, userID string) (*model.Location, error) {
	var loc model.Location
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Take(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &loc, nil
}

// Upsert 单条语句完成插入或覆盖，并发写入以最后完成的为准
func (r *LocationRepository) Upsert(ctx context.Context, userID string, lat, lon float64) (*model.Location, error) {
	loc := &model.Location{UserID: userID, Latitude: lat, Longitude: lon}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "updated_at"}),
	}).Create(loc).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return loc, nil
}

// FindByUserIDs 批量读取，没有位置的用户不出现在结果里
func (r *LocationRepository) FindByUserIDs(ctx context.Context, userIDs []string) ([]model.Location, error) {
	if len(userIDs) == 0 {
		return []model.Location{}, nil
	}
	var rows []model.Location
	if err := r.DB.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, wrapErr(err)
	}
	return rows, nil
}
