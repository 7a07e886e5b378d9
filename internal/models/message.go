package models

import (
	"time"
)

type Message struct {
	ID              int       `json:"id" db:"id"`
	ConversationID  int       `json:"conversation_id" db:"conversation_id"`
	SenderID        int       `json:"sender_id" db:"sender_id"`
	Sender          *User     `json:"sender,omitempty"`
	Content         *string   `json:"content" db:"content"`
	IsSystemMessage bool      `json:"is_system_message" db:"is_system_message"`
	HasAttachment   bool      `json:"has_attachment" db:"has_attachment"`
	FileName        *string   `json:"file_name" db:"file_name"`
	FilePath        *string   `json:"file_path" db:"file_path"`
	FileSize        *int64    `json:"file_size" db:"file_size"`
	FileType        *string   `json:"file_type" db:"file_type"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
