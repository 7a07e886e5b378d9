package store

import (
	"context"
	"time"

	"WorkBridge/server/internal/models"
)

// Store is the persistence boundary for the service layer. InTx runs fn against
// a transaction-bound Store; every write that touches more than one row goes
// through it so a failure rolls the whole unit of work back.
type Store interface {
	InTx(ctx context.Context, fn func(Store) error) error

	CreateUser(ctx context.Context, user *models.User) (int, error)
	UserByID(ctx context.Context, id int) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []int) (map[int]*models.User, error)
	UsersByType(ctx context.Context, userType string) ([]models.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)

	CreateConversation(ctx context.Context, pairKey string, now time.Time) (*models.Conversation, error)
	ConversationByID(ctx context.Context, id int) (*models.Conversation, error)
	ConversationByPairKey(ctx context.Context, pairKey string) (*models.Conversation, error)
	ConversationsByUser(ctx context.Context, userID int) ([]models.Conversation, error)
	TouchConversation(ctx context.Context, conversationID int, at time.Time) error

	AddParticipant(ctx context.Context, conversationID, userID int, now time.Time) error
	IsParticipant(ctx context.Context, conversationID, userID int) (bool, error)
	ParticipantsByConversations(ctx context.Context, conversationIDs []int) (map[int][]models.ConversationParticipant, error)
	IncrementUnread(ctx context.Context, conversationID, senderID int) error
	ResetUnread(ctx context.Context, conversationID, userID int, at time.Time) error

	InsertMessage(ctx context.Context, msg *models.Message) error
	MessagesByConversation(ctx context.Context, conversationID, offset, limit int) ([]models.Message, error)
	CountMessages(ctx context.Context, conversationID int) (int, error)
	LastMessages(ctx context.Context, conversationIDs []int) (map[int]*models.Message, error)
	MessageByFilePath(ctx context.Context, filePath string) (*models.Message, error)

	CreateApplication(ctx context.Context, app *models.JobApplication) (int, error)
	ApplicationByID(ctx context.Context, id int) (*models.JobApplication, error)
	ApplicationsByStudent(ctx context.Context, studentID int) ([]models.JobApplication, error)
	ApplicationsByEmployer(ctx context.Context, employerID int) ([]models.JobApplication, error)
	SetApplicationStatus(ctx context.Context, id int, status string, at time.Time) error
}
