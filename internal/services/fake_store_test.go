package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"WorkBridge/server/internal/models"
	"WorkBridge/server/internal/store"

	"github.com/jackc/pgconn"
)

// fakeStore is an in-memory Store. InTx snapshots the state and restores it
// when fn fails, mirroring a rolled-back transaction.
type fakeStore struct {
	nextID        int
	users         map[int]*models.User
	conversations map[int]*models.Conversation
	pairKeys      map[string]int
	participants  []models.ConversationParticipant
	messages      []models.Message
	applications  map[int]*models.JobApplication

	// missPairKeyOnce makes the next pair lookup miss even when the row
	// exists, simulating a concurrent creator winning the race.
	missPairKeyOnce   bool
	failInsertMessage bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[int]*models.User),
		conversations: make(map[int]*models.Conversation),
		pairKeys:      make(map[string]int),
		applications:  make(map[int]*models.JobApplication),
	}
}

func (f *fakeStore) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addUser(username, userType, fullName string) *models.User {
	user := &models.User{
		ID:        f.id(),
		Email:     username + "@example.com",
		Username:  username,
		UserType:  userType,
		FullName:  fullName,
		CreatedAt: time.Now(),
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeStore) snapshot() *fakeStore {
	snap := newFakeStore()
	snap.nextID = f.nextID
	for id, u := range f.users {
		cp := *u
		snap.users[id] = &cp
	}
	for id, c := range f.conversations {
		cp := *c
		snap.conversations[id] = &cp
	}
	for key, id := range f.pairKeys {
		snap.pairKeys[key] = id
	}
	snap.participants = append([]models.ConversationParticipant(nil), f.participants...)
	snap.messages = append([]models.Message(nil), f.messages...)
	for id, a := range f.applications {
		cp := *a
		snap.applications[id] = &cp
	}
	snap.missPairKeyOnce = f.missPairKeyOnce
	snap.failInsertMessage = f.failInsertMessage
	return snap
}

func (f *fakeStore) InTx(ctx context.Context, fn func(store.Store) error) error {
	snap := f.snapshot()
	if err := fn(f); err != nil {
		*f = *snap
		return err
	}
	return nil
}

func (f *fakeStore) CreateUser(ctx context.Context, user *models.User) (int, error) {
	user.ID = f.id()
	user.CreatedAt = time.Now()
	cp := *user
	f.users[user.ID] = &cp
	return user.ID, nil
}

func (f *fakeStore) UserByID(ctx context.Context, id int) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (f *fakeStore) UsersByIDs(ctx context.Context, ids []int) (map[int]*models.User, error) {
	result := make(map[int]*models.User, len(ids))
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			cp := *user
			result[id] = &cp
		}
	}
	return result, nil
}

func (f *fakeStore) UsersByType(ctx context.Context, userType string) ([]models.User, error) {
	var result []models.User
	for _, user := range f.users {
		if user.UserType == userType {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (f *fakeStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := f.UserByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	for _, user := range f.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateConversation(ctx context.Context, pairKey string, now time.Time) (*models.Conversation, error) {
	if _, exists := f.pairKeys[pairKey]; exists {
		return nil, &pgconn.PgError{Code: "23505", ConstraintName: "conversations_pair_key_key"}
	}
	conversation := &models.Conversation{ID: f.id(), CreatedAt: now, UpdatedAt: now}
	f.conversations[conversation.ID] = conversation
	f.pairKeys[pairKey] = conversation.ID
	cp := *conversation
	return &cp, nil
}

func (f *fakeStore) ConversationByID(ctx context.Context, id int) (*models.Conversation, error) {
	conversation, ok := f.conversations[id]
	if !ok {
		return nil, models.ErrConversationNotFound
	}
	cp := *conversation
	return &cp, nil
}

func (f *fakeStore) ConversationByPairKey(ctx context.Context, pairKey string) (*models.Conversation, error) {
	if f.missPairKeyOnce {
		f.missPairKeyOnce = false
		return nil, models.ErrConversationNotFound
	}
	id, ok := f.pairKeys[pairKey]
	if !ok {
		return nil, models.ErrConversationNotFound
	}
	return f.ConversationByID(ctx, id)
}

func (f *fakeStore) ConversationsByUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	var result []models.Conversation
	for _, p := range f.participants {
		if p.UserID == userID {
			if conversation, ok := f.conversations[p.ConversationID]; ok {
				result = append(result, *conversation)
			}
		}
	}
	return result, nil
}

func (f *fakeStore) TouchConversation(ctx context.Context, conversationID int, at time.Time) error {
	conversation, ok := f.conversations[conversationID]
	if !ok {
		return models.ErrConversationNotFound
	}
	conversation.UpdatedAt = at
	return nil
}

func (f *fakeStore) AddParticipant(ctx context.Context, conversationID, userID int, now time.Time) error {
	f.participants = append(f.participants, models.ConversationParticipant{
		ID:             f.id(),
		ConversationID: conversationID,
		UserID:         userID,
		JoinedAt:       now,
	})
	return nil
}

func (f *fakeStore) IsParticipant(ctx context.Context, conversationID, userID int) (bool, error) {
	for _, p := range f.participants {
		if p.ConversationID == conversationID && p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ParticipantsByConversations(ctx context.Context, conversationIDs []int) (map[int][]models.ConversationParticipant, error) {
	result := make(map[int][]models.ConversationParticipant, len(conversationIDs))
	for _, id := range conversationIDs {
		for _, p := range f.participants {
			if p.ConversationID == id {
				result[id] = append(result[id], p)
			}
		}
	}
	return result, nil
}

func (f *fakeStore) IncrementUnread(ctx context.Context, conversationID, senderID int) error {
	for i := range f.participants {
		p := &f.participants[i]
		if p.ConversationID == conversationID && p.UserID != senderID {
			p.UnreadCount++
		}
	}
	return nil
}

func (f *fakeStore) ResetUnread(ctx context.Context, conversationID, userID int, at time.Time) error {
	for i := range f.participants {
		p := &f.participants[i]
		if p.ConversationID == conversationID && p.UserID == userID {
			p.UnreadCount = 0
			t := at
			p.LastReadAt = &t
		}
	}
	return nil
}

func (f *fakeStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if f.failInsertMessage {
		return errors.New("simulated insert failure")
	}
	msg.ID = f.id()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeStore) conversationMessages(conversationID int) []models.Message {
	var result []models.Message
	for _, msg := range f.messages {
		if msg.ConversationID == conversationID {
			result = append(result, msg)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (f *fakeStore) MessagesByConversation(ctx context.Context, conversationID, offset, limit int) ([]models.Message, error) {
	all := f.conversationMessages(conversationID)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]models.Message(nil), all[offset:end]...), nil
}

func (f *fakeStore) CountMessages(ctx context.Context, conversationID int) (int, error) {
	return len(f.conversationMessages(conversationID)), nil
}

func (f *fakeStore) LastMessages(ctx context.Context, conversationIDs []int) (map[int]*models.Message, error) {
	result := make(map[int]*models.Message, len(conversationIDs))
	for _, id := range conversationIDs {
		all := f.conversationMessages(id)
		if len(all) > 0 {
			last := all[len(all)-1]
			result[id] = &last
		}
	}
	return result, nil
}

func (f *fakeStore) MessageByFilePath(ctx context.Context, filePath string) (*models.Message, error) {
	for _, msg := range f.messages {
		if msg.FilePath != nil && *msg.FilePath == filePath {
			cp := msg
			return &cp, nil
		}
	}
	return nil, models.ErrFileNotFound
}

func (f *fakeStore) CreateApplication(ctx context.Context, app *models.JobApplication) (int, error) {
	app.ID = f.id()
	cp := *app
	f.applications[app.ID] = &cp
	return app.ID, nil
}

func (f *fakeStore) ApplicationByID(ctx context.Context, id int) (*models.JobApplication, error) {
	app, ok := f.applications[id]
	if !ok {
		return nil, models.ErrApplicationNotFound
	}
	cp := *app
	return &cp, nil
}

func (f *fakeStore) ApplicationsByStudent(ctx context.Context, studentID int) ([]models.JobApplication, error) {
	var result []models.JobApplication
	for _, app := range f.applications {
		if app.StudentID == studentID {
			result = append(result, *app)
		}
	}
	return result, nil
}

func (f *fakeStore) ApplicationsByEmployer(ctx context.Context, employerID int) ([]models.JobApplication, error) {
	var result []models.JobApplication
	for _, app := range f.applications {
		if app.EmployerID == employerID {
			result = append(result, *app)
		}
	}
	return result, nil
}

func (f *fakeStore) SetApplicationStatus(ctx context.Context, id int, status string, at time.Time) error {
	app, ok := f.applications[id]
	if !ok {
		return models.ErrApplicationNotFound
	}
	app.Status = status
	app.UpdatedAt = at
	return nil
}

// fakeBlob is an in-memory files.Storage.
type fakeBlob struct {
	seq   int
	blobs map[string][]byte
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{blobs: make(map[string][]byte)}
}

func (b *fakeBlob) Save(r io.Reader, ext string) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	b.seq++
	key := fmt.Sprintf("blob-%04d.%s", b.seq, ext)
	b.blobs[key] = data
	return key, int64(len(data)), nil
}

func (b *fakeBlob) Open(key string) (io.ReadCloser, error) {
	data, ok := b.blobs[key]
	if !ok {
		return nil, models.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBlob) Remove(key string) error {
	delete(b.blobs, key)
	return nil
}

func (b *fakeBlob) SniffType(key string) (string, error) {
	return "application/octet-stream", nil
}
