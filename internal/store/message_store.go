package store

import (
	"context"
	"errors"
	"log"

	"WorkBridge/server/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

var messageColumns = []string{
	"id", "conversation_id", "sender_id", "content", "is_system_message",
	"has_attachment", "file_name", "file_path", "file_size", "file_type", "created_at",
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content,
		&msg.IsSystemMessage, &msg.HasAttachment, &msg.FileName, &msg.FilePath,
		&msg.FileSize, &msg.FileType, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Postgres) InsertMessage(ctx context.Context, msg *models.Message) error {
	query := psql.Insert("messages").
		Columns("conversation_id", "sender_id", "content", "is_system_message",
			"has_attachment", "file_name", "file_path", "file_size", "file_type", "created_at").
		Values(msg.ConversationID, msg.SenderID, msg.Content, msg.IsSystemMessage,
			msg.HasAttachment, msg.FileName, msg.FilePath, msg.FileSize, msg.FileType, msg.CreatedAt).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if err := s.q.QueryRow(ctx, sqlStr, args...).Scan(&msg.ID); err != nil {
		log.Printf("Error saving message in conversation %d: %v", msg.ConversationID, err)
		return err
	}
	return nil
}

func (s *Postgres) MessagesByConversation(ctx context.Context, conversationID, offset, limit int) ([]models.Message, error) {
	query := psql.Select(messageColumns...).
		From("messages").
		Where(squirrel.Eq{"conversation_id": conversationID}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching messages for conversation %d: %v", conversationID, err)
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content,
			&msg.IsSystemMessage, &msg.HasAttachment, &msg.FileName, &msg.FilePath,
			&msg.FileSize, &msg.FileType, &msg.CreatedAt)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *Postgres) CountMessages(ctx context.Context, conversationID int) (int, error) {
	query := psql.Select("COUNT(*)").
		From("messages").
		Where(squirrel.Eq{"conversation_id": conversationID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.q.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		log.Printf("Error counting messages for conversation %d: %v", conversationID, err)
		return 0, err
	}
	return count, nil
}

// LastMessages returns the newest message per conversation in one query, so the
// conversation listing does not fan out into a query per row.
func (s *Postgres) LastMessages(ctx context.Context, conversationIDs []int) (map[int]*models.Message, error) {
	last := make(map[int]*models.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return last, nil
	}

	query := psql.Select("DISTINCT ON (conversation_id) " +
		"id, conversation_id, sender_id, content, is_system_message, " +
		"has_attachment, file_name, file_path, file_size, file_type, created_at").
		From("messages").
		Where(squirrel.Eq{"conversation_id": conversationIDs}).
		OrderBy("conversation_id", "created_at DESC", "id DESC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching last messages: %v", err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content,
			&msg.IsSystemMessage, &msg.HasAttachment, &msg.FileName, &msg.FilePath,
			&msg.FileSize, &msg.FileType, &msg.CreatedAt)
		if err != nil {
			return nil, err
		}
		last[msg.ConversationID] = &msg
	}
	return last, rows.Err()
}

func (s *Postgres) MessageByFilePath(ctx context.Context, filePath string) (*models.Message, error) {
	query := psql.Select(messageColumns...).
		From("messages").
		Where(squirrel.Eq{"file_path": filePath})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	msg, err := scanMessage(s.q.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrFileNotFound
		}
		log.Printf("Error fetching message for file %s: %v", filePath, err)
		return nil, err
	}
	return msg, nil
}
