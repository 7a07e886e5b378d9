package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"WorkBridge/server/internal/appMiddleware"
	"WorkBridge/server/internal/auth"
	"WorkBridge/server/internal/models"
	"WorkBridge/server/internal/services"
	"WorkBridge/server/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// canned stubs for the three service interfaces. Every method returns the
// stub's err when set, the canned value otherwise, and records its arguments.

type stubUsers struct {
	user   *models.User
	tokens *services.AuthTokens
	access string
	err    error
}

func (s *stubUsers) Register(ctx context.Context, input services.RegisterInput) (*models.User, *services.AuthTokens, error) {
	return s.user, s.tokens, s.err
}

func (s *stubUsers) Login(ctx context.Context, email, password string) (*models.User, *services.AuthTokens, error) {
	return s.user, s.tokens, s.err
}

func (s *stubUsers) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return s.access, s.err
}

func (s *stubUsers) UserByID(ctx context.Context, id int) (*models.User, error) {
	return s.user, s.err
}

func (s *stubUsers) Students(ctx context.Context) ([]models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.User{}, nil
}

type stubJobs struct {
	application *models.JobApplication
	summary     *models.ConversationSummary
	err         error
}

func (s *stubJobs) Apply(ctx context.Context, studentID, employerID int, jobTitle string) (*models.JobApplication, error) {
	return s.application, s.err
}

func (s *stubJobs) ListForUser(ctx context.Context, userID int, userType string) ([]models.JobApplication, error) {
	return nil, s.err
}

func (s *stubJobs) Accept(ctx context.Context, employerID, applicationID int) (*models.JobApplication, *models.ConversationSummary, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.application, s.summary, nil
}

func (s *stubJobs) Reject(ctx context.Context, employerID, applicationID int) (*models.JobApplication, error) {
	return s.application, s.err
}

type stubMessaging struct {
	summary  *models.ConversationSummary
	created  bool
	message  *models.Message
	messages []models.Message
	total    int
	blob     string
	err      error

	gotConversationID int
	gotContent        string
	gotAttachment     *services.Attachment
	gotPage           int
	gotPerPage        int
}

func (s *stubMessaging) StartConversation(ctx context.Context, userID, recipientID int) (*models.ConversationSummary, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	return s.summary, s.created, nil
}

func (s *stubMessaging) ListConversations(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.ConversationSummary{}, nil
}

func (s *stubMessaging) ConversationForUser(ctx context.Context, conversationID, userID int) (*models.ConversationSummary, error) {
	return s.summary, s.err
}

func (s *stubMessaging) ListMessages(ctx context.Context, conversationID, requesterID, page, perPage int) ([]models.Message, int, error) {
	s.gotConversationID = conversationID
	s.gotPage = page
	s.gotPerPage = perPage
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.messages, s.total, nil
}

func (s *stubMessaging) SendMessage(ctx context.Context, conversationID, senderID int, content string, attachment *services.Attachment) (*models.Message, error) {
	s.gotConversationID = conversationID
	s.gotContent = content
	s.gotAttachment = attachment
	return s.message, s.err
}

func (s *stubMessaging) MarkRead(ctx context.Context, conversationID, userID int) error {
	return s.err
}

func (s *stubMessaging) OpenAttachment(ctx context.Context, storageKey string, requesterID int) (*models.Message, io.ReadCloser, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.message, io.NopCloser(strings.NewReader(s.blob)), nil
}

func (s *stubMessaging) PostAcceptanceMessage(ctx context.Context, st store.Store, employer, student *models.User, jobTitle string) (*models.Conversation, error) {
	return nil, s.err
}

type testEnv struct {
	router    chi.Router
	users     *stubUsers
	jobs      *stubJobs
	messaging *stubMessaging
	token     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := &stubUsers{}
	jobs := &stubJobs{}
	messaging := &stubMessaging{}
	h := New(users, jobs, messaging, 1<<20)

	tokens := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	token, err := tokens.NewAccessToken(1, models.UserTypeStudent)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(tokens))
		r.Get("/api/messages/conversations", h.ListConversations)
		r.Post("/api/messages/conversations/start", h.StartConversation)
		r.Get("/api/messages/conversations/{conversationID}/messages", h.ListMessages)
		r.Post("/api/messages/conversations/{conversationID}/send", h.SendMessage)
		r.Post("/api/messages/conversations/{conversationID}/mark-read", h.MarkRead)
		r.Get("/api/messages/files/{storageKey}", h.DownloadFile)
		r.Post("/api/jobs/applications", h.ApplyForJob)
		r.Post("/api/jobs/applications/{applicationID}/accept", h.AcceptApplication)
	})

	return &testEnv{router: r, users: users, jobs: jobs, messaging: messaging, token: token}
}

func (e *testEnv) do(t *testing.T, method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+e.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorEnvelope(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{models.ErrEmptyMessage, http.StatusBadRequest, "invalid_request"},
		{models.ErrUnsupportedFileType, http.StatusBadRequest, "unsupported_file_type"},
		{models.ErrUserNotParticipant, http.StatusForbidden, "forbidden"},
		{models.ErrConversationNotFound, http.StatusNotFound, "not_found"},
		{errors.New("pool exhausted"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		env := newTestEnv(t)
		env.messaging.err = tc.err

		rec := env.do(t, http.MethodGet, "/api/messages/conversations/5/messages", "", nil)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())

		body := decodeBody(t, rec)
		require.Equal(t, tc.code, body["code"], tc.err.Error())
		if tc.status == http.StatusInternalServerError {
			// Internal details never leak to the client.
			require.Equal(t, "Internal server error", body["error"])
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	env.users.user = &models.User{ID: 1}
	env.users.tokens = &services.AuthTokens{AccessToken: "a", RefreshToken: "r"}

	rec := env.do(t, http.MethodPost, "/api/auth/register", "application/json",
		strings.NewReader(`{"email":"not-an-email","username":"al","password":"x","user_type":"pirate"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decodeBody(t, rec)["code"])

	rec = env.do(t, http.MethodPost, "/api/auth/register", "application/json",
		strings.NewReader(`{"email":"alice@example.com","username":"alice","password":"s3cret","user_type":"student"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "a", body["access_token"])
	require.Equal(t, "r", body["refresh_token"])
}

func TestRegisterConflict(t *testing.T) {
	env := newTestEnv(t)
	env.users.err = models.ErrEmailTaken

	rec := env.do(t, http.MethodPost, "/api/auth/register", "application/json",
		strings.NewReader(`{"email":"alice@example.com","username":"alice","password":"s3cret","user_type":"student"}`))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "conflict", decodeBody(t, rec)["code"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.users.err = models.ErrInvalidCredentials

	rec := env.do(t, http.MethodPost, "/api/auth/login", "application/json",
		strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "application/json",
		strings.NewReader(`{}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMessagesEnvelope(t *testing.T) {
	env := newTestEnv(t)
	env.messaging.messages = make([]models.Message, 50)
	env.messaging.total = 120

	rec := env.do(t, http.MethodGet, "/api/messages/conversations/5/messages?page=2&per_page=50", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, float64(2), body["page"])
	require.Equal(t, float64(50), body["per_page"])
	require.Equal(t, float64(120), body["total"])
	require.Equal(t, float64(3), body["pages"])
	require.Equal(t, 5, env.messaging.gotConversationID)
	require.Equal(t, 2, env.messaging.gotPage)
}

func TestListMessagesRejectsBadConversationID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/messages/conversations/abc/messages", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageMultipart(t *testing.T) {
	env := newTestEnv(t)
	env.messaging.message = &models.Message{ID: 9}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("content", "see attached"))
	part, err := form.CreateFormFile("file", "resume.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	rec := env.do(t, http.MethodPost, "/api/messages/conversations/5/send", form.FormDataContentType(), &buf)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Equal(t, 5, env.messaging.gotConversationID)
	require.Equal(t, "see attached", env.messaging.gotContent)
	require.NotNil(t, env.messaging.gotAttachment)
	require.Equal(t, "resume.pdf", env.messaging.gotAttachment.FileName)

	body := decodeBody(t, rec)
	require.Equal(t, "Message sent successfully", body["message"])
}

func TestSendMessageWithoutFile(t *testing.T) {
	env := newTestEnv(t)
	env.messaging.message = &models.Message{ID: 9}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("content", "plain text"))
	require.NoError(t, form.Close())

	rec := env.do(t, http.MethodPost, "/api/messages/conversations/5/send", form.FormDataContentType(), &buf)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Nil(t, env.messaging.gotAttachment)
	require.Equal(t, "plain text", env.messaging.gotContent)
}

func TestStartConversationStatus(t *testing.T) {
	env := newTestEnv(t)
	env.messaging.summary = &models.ConversationSummary{}
	env.messaging.created = true

	rec := env.do(t, http.MethodPost, "/api/messages/conversations/start", "application/json",
		strings.NewReader(`{"recipient_id":2}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Conversation started", decodeBody(t, rec)["message"])

	env.messaging.created = false
	rec = env.do(t, http.MethodPost, "/api/messages/conversations/start", "application/json",
		strings.NewReader(`{"recipient_id":2}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Conversation already exists", decodeBody(t, rec)["message"])

	rec = env.do(t, http.MethodPost, "/api/messages/conversations/start", "application/json",
		strings.NewReader(`{}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadFileHeaders(t *testing.T) {
	env := newTestEnv(t)
	fileName := "resume.pdf"
	fileType := "application/pdf"
	fileSize := int64(8)
	env.messaging.message = &models.Message{
		FileName: &fileName,
		FileType: &fileType,
		FileSize: &fileSize,
	}
	env.messaging.blob = "%PDF-1.4"

	rec := env.do(t, http.MethodGet, "/api/messages/files/abc123.pdf", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="resume.pdf"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "8", rec.Header().Get("Content-Length"))
	require.Equal(t, "%PDF-1.4", rec.Body.String())
}

func TestAcceptApplicationEnvelope(t *testing.T) {
	env := newTestEnv(t)
	env.jobs.application = &models.JobApplication{ID: 3, Status: models.ApplicationStatusAccepted}
	env.jobs.summary = &models.ConversationSummary{}

	rec := env.do(t, http.MethodPost, "/api/jobs/applications/3/accept", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "Application accepted and conversation created", body["message"])
	require.NotNil(t, body["application"])
	require.NotNil(t, body["conversation"])
}

func TestAcceptApplicationConflicts(t *testing.T) {
	env := newTestEnv(t)

	env.jobs.err = models.ErrApplicationDecided
	rec := env.do(t, http.MethodPost, "/api/jobs/applications/3/accept", "", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	env.jobs.err = models.ErrNotApplicationOwner
	rec = env.do(t, http.MethodPost, "/api/jobs/applications/3/accept", "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/messages/conversations", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
