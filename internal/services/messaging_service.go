package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"WorkBridge/server/internal/db"
	"WorkBridge/server/internal/files"
	"WorkBridge/server/internal/models"
	"WorkBridge/server/internal/store"

	"github.com/samber/lo"
)

const DefaultPerPage = 50

const acceptanceMessageTemplate = "Congratulations %s! 🎉 Your application for the position of '%s' has been accepted. We're excited to have you on board! Let's discuss the next steps."

// Attachment is an incoming file attachment as received at the HTTP boundary.
type Attachment struct {
	FileName    string
	ContentType string
	Reader      io.Reader
}

type MessagingService interface {
	StartConversation(ctx context.Context, userID, recipientID int) (*models.ConversationSummary, bool, error)
	ListConversations(ctx context.Context, userID int) ([]models.ConversationSummary, error)
	ConversationForUser(ctx context.Context, conversationID, userID int) (*models.ConversationSummary, error)
	ListMessages(ctx context.Context, conversationID, requesterID, page, perPage int) ([]models.Message, int, error)
	SendMessage(ctx context.Context, conversationID, senderID int, content string, attachment *Attachment) (*models.Message, error)
	MarkRead(ctx context.Context, conversationID, userID int) error
	OpenAttachment(ctx context.Context, storageKey string, requesterID int) (*models.Message, io.ReadCloser, error)
	PostAcceptanceMessage(ctx context.Context, s store.Store, employer, student *models.User, jobTitle string) (*models.Conversation, error)
}

type messagingService struct {
	store store.Store
	files files.Storage
	now   func() time.Time
}

func NewMessagingService(st store.Store, fs files.Storage) *messagingService {
	return &messagingService{
		store: st,
		files: fs,
		now:   time.Now,
	}
}

// StartConversation returns the existing conversation with the recipient or
// creates a fresh one. The second return reports whether it was created.
func (ms *messagingService) StartConversation(ctx context.Context, userID, recipientID int) (*models.ConversationSummary, bool, error) {
	if recipientID == userID {
		return nil, false, models.ErrInvalidRequest
	}

	if _, err := ms.store.UserByID(ctx, recipientID); err != nil {
		return nil, false, err
	}

	conversation, created, err := ms.findOrCreateConversation(ctx, ms.store, userID, recipientID)
	if err != nil {
		return nil, false, err
	}

	summary, err := ms.summaryFor(ctx, userID, *conversation)
	if err != nil {
		return nil, false, err
	}
	return summary, created, nil
}

// findOrCreateConversation resolves the single direct conversation for the
// unordered user pair, creating it together with both participant rows in one
// transaction when it does not exist yet. A concurrent creator losing the race
// on the pair_key unique index converges on the winner's conversation.
func (ms *messagingService) findOrCreateConversation(ctx context.Context, s store.Store, userA, userB int) (*models.Conversation, bool, error) {
	pairKey := models.PairKey(userA, userB)

	conversation, err := s.ConversationByPairKey(ctx, pairKey)
	if err == nil {
		return conversation, false, nil
	}
	if !errors.Is(err, models.ErrConversationNotFound) {
		return nil, false, err
	}

	now := ms.now().UTC()
	var created *models.Conversation
	err = s.InTx(ctx, func(tx store.Store) error {
		c, err := tx.CreateConversation(ctx, pairKey, now)
		if err != nil {
			return err
		}
		if err := tx.AddParticipant(ctx, c.ID, userA, now); err != nil {
			return err
		}
		if err := tx.AddParticipant(ctx, c.ID, userB, now); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			log.Printf("Lost find-or-create race for pair %s, reusing existing conversation", pairKey)
			conversation, err := s.ConversationByPairKey(ctx, pairKey)
			return conversation, false, err
		}
		return nil, false, err
	}

	log.Printf("Conversation %d created for pair %s", created.ID, pairKey)
	return created, true, nil
}

func (ms *messagingService) ListConversations(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	conversations, err := ms.store.ConversationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries, err := ms.summarize(ctx, userID, conversations)
	if err != nil {
		return nil, err
	}

	// updated_at is denormalized by sends, so the ordering is computed here
	// rather than promised by the store.
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (ms *messagingService) ConversationForUser(ctx context.Context, conversationID, userID int) (*models.ConversationSummary, error) {
	conversation, err := ms.store.ConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return ms.summaryFor(ctx, userID, *conversation)
}

func (ms *messagingService) summaryFor(ctx context.Context, userID int, conversation models.Conversation) (*models.ConversationSummary, error) {
	summaries, err := ms.summarize(ctx, userID, []models.Conversation{conversation})
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, models.ErrConversationNotFound
	}
	return &summaries[0], nil
}

// summarize resolves participants, unread counts, counterpart profiles and
// last messages for a batch of conversations with one query per concern.
func (ms *messagingService) summarize(ctx context.Context, userID int, conversations []models.Conversation) ([]models.ConversationSummary, error) {
	if len(conversations) == 0 {
		return []models.ConversationSummary{}, nil
	}

	ids := lo.Map(conversations, func(c models.Conversation, _ int) int { return c.ID })

	participants, err := ms.store.ParticipantsByConversations(ctx, ids)
	if err != nil {
		return nil, err
	}
	lastMessages, err := ms.store.LastMessages(ctx, ids)
	if err != nil {
		return nil, err
	}

	var userIDs []int
	for _, convParticipants := range participants {
		for _, p := range convParticipants {
			userIDs = append(userIDs, p.UserID)
		}
	}
	for _, msg := range lastMessages {
		userIDs = append(userIDs, msg.SenderID)
	}
	users, err := ms.store.UsersByIDs(ctx, lo.Uniq(userIDs))
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary := models.ConversationSummary{Conversation: conversation}

		for _, p := range participants[conversation.ID] {
			if p.UserID == userID {
				summary.UnreadCount = p.UnreadCount
			} else {
				summary.OtherParticipant = users[p.UserID]
			}
		}

		if msg := lastMessages[conversation.ID]; msg != nil {
			msg.Sender = users[msg.SenderID]
			summary.LastMessage = msg
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (ms *messagingService) ListMessages(ctx context.Context, conversationID, requesterID, page, perPage int) ([]models.Message, int, error) {
	if err := ms.requireParticipant(ctx, conversationID, requesterID); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	total, err := ms.store.CountMessages(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}

	messages, err := ms.store.MessagesByConversation(ctx, conversationID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, err
	}

	senderIDs := lo.Uniq(lo.Map(messages, func(m models.Message, _ int) int { return m.SenderID }))
	senders, err := ms.store.UsersByIDs(ctx, senderIDs)
	if err != nil {
		return nil, 0, err
	}
	for i := range messages {
		messages[i].Sender = senders[messages[i].SenderID]
	}
	return messages, total, nil
}

func (ms *messagingService) SendMessage(ctx context.Context, conversationID, senderID int, content string, attachment *Attachment) (*models.Message, error) {
	if err := ms.requireParticipant(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" && attachment == nil {
		return nil, models.ErrEmptyMessage
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		CreatedAt:      ms.now().UTC(),
	}
	if content != "" {
		msg.Content = &content
	}

	if attachment != nil {
		if err := ms.saveAttachment(msg, attachment); err != nil {
			return nil, err
		}
	}

	err := ms.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.InsertMessage(ctx, msg); err != nil {
			return err
		}
		if err := tx.TouchConversation(ctx, conversationID, msg.CreatedAt); err != nil {
			return err
		}
		return tx.IncrementUnread(ctx, conversationID, senderID)
	})
	if err != nil {
		if msg.FilePath != nil {
			// The blob was written before the transaction, do not leave it
			// orphaned on disk.
			if rmErr := ms.files.Remove(*msg.FilePath); rmErr != nil {
				log.Printf("Error removing orphaned attachment %s: %v", *msg.FilePath, rmErr)
			}
		}
		return nil, err
	}

	sender, err := ms.store.UserByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	msg.Sender = sender
	return msg, nil
}

func (ms *messagingService) saveAttachment(msg *models.Message, attachment *Attachment) error {
	fileName := filepath.Base(attachment.FileName)
	ext, ok := files.AllowedExtension(fileName)
	if !ok {
		return models.ErrUnsupportedFileType
	}

	key, size, err := ms.files.Save(attachment.Reader, ext)
	if err != nil {
		return err
	}

	contentType := attachment.ContentType
	if contentType == "" {
		contentType, err = ms.files.SniffType(key)
		if err != nil {
			log.Printf("Error sniffing content type of %s: %v", key, err)
			contentType = "application/octet-stream"
		}
	}

	msg.HasAttachment = true
	msg.FileName = &fileName
	msg.FilePath = &key
	msg.FileSize = &size
	msg.FileType = &contentType
	return nil
}

func (ms *messagingService) MarkRead(ctx context.Context, conversationID, userID int) error {
	if err := ms.requireParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	return ms.store.ResetUnread(ctx, conversationID, userID, ms.now().UTC())
}

func (ms *messagingService) OpenAttachment(ctx context.Context, storageKey string, requesterID int) (*models.Message, io.ReadCloser, error) {
	msg, err := ms.store.MessageByFilePath(ctx, storageKey)
	if err != nil {
		return nil, nil, err
	}

	if err := ms.requireParticipant(ctx, msg.ConversationID, requesterID); err != nil {
		return nil, nil, err
	}

	rc, err := ms.files.Open(storageKey)
	if err != nil {
		log.Printf("Error opening attachment %s: %v", storageKey, err)
		return nil, nil, models.ErrFileNotFound
	}
	return msg, rc, nil
}

// PostAcceptanceMessage injects the system message for an accepted job
// application. It runs on the caller's store handle so the message lands in
// the same unit of work as the application status change.
func (ms *messagingService) PostAcceptanceMessage(ctx context.Context, s store.Store, employer, student *models.User, jobTitle string) (*models.Conversation, error) {
	conversation, _, err := ms.findOrCreateConversation(ctx, s, employer.ID, student.ID)
	if err != nil {
		return nil, err
	}

	now := ms.now().UTC()
	content := fmt.Sprintf(acceptanceMessageTemplate, student.DisplayName(), jobTitle)
	msg := &models.Message{
		ConversationID:  conversation.ID,
		SenderID:        employer.ID,
		Content:         &content,
		IsSystemMessage: true,
		CreatedAt:       now,
	}

	if err := s.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.TouchConversation(ctx, conversation.ID, now); err != nil {
		return nil, err
	}
	if err := s.IncrementUnread(ctx, conversation.ID, employer.ID); err != nil {
		return nil, err
	}
	conversation.UpdatedAt = now
	return conversation, nil
}

func (ms *messagingService) requireParticipant(ctx context.Context, conversationID, userID int) error {
	ok, err := ms.store.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrUserNotParticipant
	}
	return nil
}
