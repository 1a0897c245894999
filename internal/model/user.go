package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"uniqueIndex;size:32;not null"`
	Fullname     string `gorm:"size:128;not null"`
	Password     string `gorm:"size:255;not null"`
	Role         string `gorm:"size:16;not null;default:user"`
	Email        string `gorm:"uniqueIndex;size:64;not null"`
	ProfileImage string `gorm:"size:255"` // 对象存储中的key，空表示默认头像
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicProfile 对外展示的用户信息
type PublicProfile struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Fullname        string `json:"fullname"`
	ProfileImageURL string `json:"profile_image_url"`
}
