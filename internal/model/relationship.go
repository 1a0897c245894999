package model

import "time"

type RelationshipStatus string

const (
	StatusSent     RelationshipStatus = "sent"
	StatusPending  RelationshipStatus = "pending"
	StatusAccepted RelationshipStatus = "accepted"
	StatusDeclined RelationshipStatus = "declined"
	StatusBlocked  RelationshipStatus = "blocked"
)

// Relationship 一条有向边。一次好友请求会写入两条互为镜像的记录：
// (A->B, sent) 和 (B->A, pending)，接受时两条同时变为 accepted。
type Relationship struct {
	ID          string             `gorm:"primaryKey;size:36" json:"id"`
	RequesterID string             `gorm:"size:36;not null;uniqueIndex:idx_friendship_pair,priority:1;index:idx_friendship_status,priority:1;check:chk_friendship_not_self,requester_id <> addressee_id" json:"requester_id"`
	AddresseeID string             `gorm:"size:36;not null;uniqueIndex:idx_friendship_pair,priority:2" json:"addressee_id"`
	Status      RelationshipStatus `gorm:"size:16;not null;index:idx_friendship_status,priority:2" json:"status"`
	RequestDate time.Time          `gorm:"not null" json:"request_date"`
	AcceptDate  *time.Time         `json:"accept_date"`
	CreatedAt   time.Time          `json:"-"`
	UpdatedAt   time.Time          `json:"-"`
}

func (Relationship) TableName() string {
	return "friendships"
}

// RelationshipView 返回给调用方的关系记录，附带对方的公开资料
type RelationshipView struct {
	ID          string             `json:"id"`
	FriendID    string             `json:"friend_id"`
	Status      RelationshipStatus `json:"status"`
	RequestDate time.Time          `json:"request_date"`
	AcceptDate  *time.Time         `json:"accept_date"`
	User        *PublicProfile     `json:"user"`
}

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

const (
	EventFriendRequestSent     = "friend_request.sent"
	EventFriendRequestAccepted = "friend_request.accepted"
)

// SocialOutbox 好友事件outbox表，与关系记录在同一个事务中写入
type SocialOutbox struct {
	ID             uint64 `gorm:"primaryKey"`
	EventType      string `gorm:"size:32;not null"`
	RelationshipID string `gorm:"size:36;not null"`
	RequesterID    string `gorm:"size:36;not null"`
	AddresseeID    string `gorm:"size:36;not null"`
	Payload        string `gorm:"type:json;not null"`
	Status         int8   `gorm:"not null;default:0;index:idx_outbox_status;comment:'0=pending,1=sent,2=failed'"`
	Retry          int    `gorm:"not null;default:0"`
	Delivered      uint32 `gorm:"not null;default:0;comment:'已投递成功的发送方，按位记录'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (SocialOutbox) TableName() string { return "social_outbox" }
