package testutil

import (
	"context"
	"fmt"
	"testing"

	"Lee_Social/internal/model"
	"Lee_Social/internal/repository/mysql"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 每个测试一个独立的内存 sqlite 库，表结构与线上一致
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, mysql.AutoMigrate(db))
	return db
}

// Password 测试用户统一的明文密码
const Password = "secret123"

// CreateUser 直接写库创建用户
func CreateUser(t testing.TB, db *gorm.DB, username string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{
		ID:       uuid.NewString(),
		Username: username,
		Fullname: username + " Test",
		Email:    username + "@example.com",
		Password: string(hash),
		Role:     model.RoleUser,
	}
	require.NoError(t, mysql.NewUserRepository(db).Create(context.Background(), u))
	return u
}

// MakeAdmin 把用户提升为管理员
func MakeAdmin(t testing.TB, db *gorm.DB, userID string) {
	t.Helper()
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", userID).Update("role", model.RoleAdmin).Error)
}
