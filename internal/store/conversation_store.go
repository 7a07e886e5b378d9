package store

import (
	"context"
	"errors"
	"log"
	"time"

	"WorkBridge/server/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

func (s *Postgres) CreateConversation(ctx context.Context, pairKey string, now time.Time) (*models.Conversation, error) {
	query := psql.Insert("conversations").
		Columns("pair_key", "created_at", "updated_at").
		Values(pairKey, now, now).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	conversation := models.Conversation{CreatedAt: now, UpdatedAt: now}
	if err := s.q.QueryRow(ctx, sqlStr, args...).Scan(&conversation.ID); err != nil {
		log.Printf("Error creating conversation for pair %s: %v", pairKey, err)
		return nil, err
	}
	return &conversation, nil
}

func (s *Postgres) ConversationByID(ctx context.Context, id int) (*models.Conversation, error) {
	query := psql.Select("id", "created_at", "updated_at").
		From("conversations").
		Where(squirrel.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var conversation models.Conversation
	err = s.q.QueryRow(ctx, sqlStr, args...).Scan(&conversation.ID, &conversation.CreatedAt, &conversation.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrConversationNotFound
		}
		log.Printf("Error fetching conversation %d: %v", id, err)
		return nil, err
	}
	return &conversation, nil
}

func (s *Postgres) ConversationByPairKey(ctx context.Context, pairKey string) (*models.Conversation, error) {
	query := psql.Select("id", "created_at", "updated_at").
		From("conversations").
		Where(squirrel.Eq{"pair_key": pairKey})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var conversation models.Conversation
	err = s.q.QueryRow(ctx, sqlStr, args...).Scan(&conversation.ID, &conversation.CreatedAt, &conversation.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrConversationNotFound
		}
		log.Printf("Error fetching conversation for pair %s: %v", pairKey, err)
		return nil, err
	}
	return &conversation, nil
}

func (s *Postgres) ConversationsByUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	query := psql.Select("c.id", "c.created_at", "c.updated_at").
		From("conversations c").
		Join("conversation_participants cp ON c.id = cp.conversation_id").
		Where(squirrel.Eq{"cp.user_id": userID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching conversations for user %d: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conversation models.Conversation
		if err := rows.Scan(&conversation.ID, &conversation.CreatedAt, &conversation.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, rows.Err()
}

func (s *Postgres) TouchConversation(ctx context.Context, conversationID int, at time.Time) error {
	query := psql.Update("conversations").
		Set("updated_at", at).
		Where(squirrel.Eq{"id": conversationID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.q.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error touching conversation %d: %v", conversationID, err)
		return err
	}
	return nil
}

func (s *Postgres) AddParticipant(ctx context.Context, conversationID, userID int, now time.Time) error {
	query := psql.Insert("conversation_participants").
		Columns("conversation_id", "user_id", "unread_count", "joined_at").
		Values(conversationID, userID, 0, now)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.q.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error adding participant %d to conversation %d: %v", userID, conversationID, err)
		return err
	}
	return nil
}

func (s *Postgres) IsParticipant(ctx context.Context, conversationID, userID int) (bool, error) {
	sqlStr := `
        SELECT EXISTS (
            SELECT 1
            FROM conversation_participants
            WHERE conversation_id = $1 AND user_id = $2
        )
    `

	var exists bool
	if err := s.q.QueryRow(ctx, sqlStr, conversationID, userID).Scan(&exists); err != nil {
		log.Printf("Error checking if user %d is a participant of conversation %d: %v", userID, conversationID, err)
		return false, err
	}
	return exists, nil
}

func (s *Postgres) ParticipantsByConversations(ctx context.Context, conversationIDs []int) (map[int][]models.ConversationParticipant, error) {
	participants := make(map[int][]models.ConversationParticipant, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return participants, nil
	}

	query := psql.Select("id", "conversation_id", "user_id", "unread_count", "last_read_at", "joined_at").
		From("conversation_participants").
		Where(squirrel.Eq{"conversation_id": conversationIDs})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching participants: %v", err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p          models.ConversationParticipant
			lastReadAt pgtype.Timestamptz
		)
		if err := rows.Scan(&p.ID, &p.ConversationID, &p.UserID, &p.UnreadCount, &lastReadAt, &p.JoinedAt); err != nil {
			return nil, err
		}
		if lastReadAt.Status == pgtype.Present {
			t := lastReadAt.Time
			p.LastReadAt = &t
		}
		participants[p.ConversationID] = append(participants[p.ConversationID], p)
	}
	return participants, rows.Err()
}

func (s *Postgres) IncrementUnread(ctx context.Context, conversationID, senderID int) error {
	query := psql.Update("conversation_participants").
		Set("unread_count", squirrel.Expr("unread_count + 1")).
		Where(squirrel.And{
			squirrel.Eq{"conversation_id": conversationID},
			squirrel.NotEq{"user_id": senderID},
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.q.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error incrementing unread counts in conversation %d: %v", conversationID, err)
		return err
	}
	return nil
}

func (s *Postgres) ResetUnread(ctx context.Context, conversationID, userID int, at time.Time) error {
	query := psql.Update("conversation_participants").
		Set("unread_count", 0).
		Set("last_read_at", at).
		Where(squirrel.And{
			squirrel.Eq{"conversation_id": conversationID},
			squirrel.Eq{"user_id": userID},
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.q.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error resetting unread count for user %d in conversation %d: %v", userID, conversationID, err)
		return err
	}
	return nil
}
