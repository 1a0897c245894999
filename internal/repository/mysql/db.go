package mysql

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const maxPageSize = 100

// Page 列表分页参数，Limit 为 0 时返回全部
type Page struct {
	Offset int
	Limit  int
}

// scope 显式的 limit 不超过 maxPageSize；只给 offset 时用一个足够大的 limit，MySQL 不接受单独的 OFFSET
func (p Page) scope(db *gorm.DB) *gorm.DB {
	if p.Offset < 0 {
		p.Offset = 0
	}
	switch {
	case p.Limit > maxPageSize:
		p.Limit = maxPageSize
	case p.Limit <= 0 && p.Offset > 0:
		p.Limit = math.MaxInt32
	case p.Limit <= 0:
		return db
	}
	return db.Offset(p.Offset).Limit(p.Limit)
}

// NewConfig 所有连接共用的 gorm 配置，SQL 日志走 slog
func NewConfig(slowThreshold time.Duration) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(
			slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
			logger.Config{
				SlowThreshold:             slowThreshold,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}
}

func InitDB(dsn string, slowThreshold time.Duration) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(dsn), NewConfig(slowThreshold))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Relationship{},
		&model.Location{},
		&model.Message{},
		&model.SocialOutbox{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// wrapErr 把驱动错误统一成 ErrConstraintViolation 或 ErrDatabase，已经是 CodeError 的原样返回
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var ce *pkg.CodeError
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", pkg.ErrConstraintViolation, err)
	}
	return fmt.Errorf("%w: %v", pkg.ErrDatabase, err)
}
