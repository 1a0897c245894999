package model

import "time"

type Message struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	SenderID    string    `gorm:"size:36;not null;index:idx_message_pair,priority:1" json:"sender_id"`
	RecipientID string    `gorm:"size:36;not null;index:idx_message_pair,priority:2" json:"recipient_id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	CreatedAt   time.Time `gorm:"index:idx_message_created" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
