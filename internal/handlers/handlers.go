package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"WorkBridge/server/internal/models"
	"WorkBridge/server/internal/services"

	"github.com/go-playground/validator/v10"
)

type Handler struct {
	users          services.UserService
	jobs           services.JobService
	messaging      services.MessagingService
	maxUploadBytes int64
	validate       *validator.Validate
}

func New(users services.UserService, jobs services.JobService, messaging services.MessagingService, maxUploadBytes int64) *Handler {
	return &Handler{
		users:          users,
		jobs:           jobs,
		messaging:      messaging,
		maxUploadBytes: maxUploadBytes,
		validate:       validator.New(),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// writeError maps a service error onto the code/message envelope of the API.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
		writeErrorMessage(w, status, code, "Internal server error")
		return
	}
	writeErrorMessage(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidRequest),
		errors.Is(err, models.ErrEmptyMessage):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, models.ErrUnsupportedFileType):
		return http.StatusBadRequest, "unsupported_file_type"
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrInvalidToken),
		errors.Is(err, models.ErrTokenExpired):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, models.ErrUserNotParticipant),
		errors.Is(err, models.ErrNotApplicationOwner):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrConversationNotFound),
		errors.Is(err, models.ErrApplicationNotFound),
		errors.Is(err, models.ErrFileNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrEmailTaken),
		errors.Is(err, models.ErrUsernameTaken),
		errors.Is(err, models.ErrApplicationDecided):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.ErrInvalidRequest
	}
	return nil
}
