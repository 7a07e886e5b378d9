package models

import (
	"fmt"
	"time"
)

type Conversation struct {
	ID        int       `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ConversationParticipant struct {
	ID             int        `json:"id" db:"id"`
	ConversationID int        `json:"conversation_id" db:"conversation_id"`
	UserID         int        `json:"user_id" db:"user_id"`
	UnreadCount    int        `json:"unread_count" db:"unread_count"`
	LastReadAt     *time.Time `json:"last_read_at" db:"last_read_at"`
	JoinedAt       time.Time  `json:"joined_at" db:"joined_at"`
}

// ConversationSummary is a conversation as seen by one of its participants.
type ConversationSummary struct {
	Conversation
	LastMessage      *Message `json:"last_message"`
	UnreadCount      int      `json:"unread_count"`
	OtherParticipant *User    `json:"other_participant"`
}

// PairKey identifies the unordered user pair of a direct conversation.
// The smaller id always comes first, so both orders map to the same key,
// and the unique index on it closes the concurrent find-or-create race.
func PairKey(userA, userB int) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}
