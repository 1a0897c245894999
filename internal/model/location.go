package model

import "time"

// Location 每个用户最多一条，最后一次上报覆盖之前的值
type Location struct {
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	Latitude  float64   `gorm:"not null" json:"latitude"`
	Longitude float64   `gorm:"not null" json:"longitude"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Location) TableName() string {
	return "locations"
}

// Coordinates 客户端上报的坐标
type Coordinates struct {
	Latitude  *float64 `json:"latitude" binding:"required,latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" binding:"required,longitude" validate:"required,longitude"`
}

// LocationEvent 实时位置广播，不落库
type LocationEvent struct {
	UserID    string  `json:"user_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
