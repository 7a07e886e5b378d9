package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"WorkBridge/server/internal/appMiddleware"
	"WorkBridge/server/internal/models"
	"WorkBridge/server/internal/services"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	identity, ok := appMiddleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, models.ErrInvalidToken)
		return
	}

	conversations, err := h.messaging.ListConversations(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": conversations})
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := appMiddleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, models.ErrInvalidToken)
		return
	}

	conversationID, err := urlParamInt(r, "conversationID")
	if err != nil {
		writeError(w, err)
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", services.DefaultPerPage)

	messages, total, err := h.messaging.ListMessages(r.Context(), conversationID, identity.UserID, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"page":     page,
		"per_page": perPage,
		"total":    total,
		"pages":    pages,
	})
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := appMiddleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, models.ErrInvalidToken)
		return
	}

	conversationID, err := urlParamInt(r, "conversationID")
	if err != nil {
		writeError(w, err)
		return
	}

	// The upload cap is enforced here at the boundary, not by the service.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		log.Printf("Error parsing multipart form: %v", err)
		writeErrorMessage(w, http.StatusRequestEntityTooLarge, "invalid_request", "Upload too large or malformed")
		return
	}

	var attachment *services.Attachment
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		attachment = &services.Attachment{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      file,
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(w, models.ErrInvalidRequest)
		return
	}

	msg, err := h.messaging.SendMessage(r.Context(), conversationID, identity.UserID, r.FormValue("content"), attachment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Message sent successfully",
		"data":    msg,
	})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := appMiddleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, models.ErrInvalidToken)
		return
	}

	conversationID, err := urlParamInt(r, "conversationID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.messaging.MarkRead(r.Context(), conversationID, identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Messages marked as read"})
}

func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := appMiddleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, models.ErrInvalidToken)
		return
	}

	var req struct {
		RecipientID int `json:"recipient_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RecipientID == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "Recipient ID is required")
		return
	}

	conversation, created, err := h.messaging.StartConversation(r.Context(), identity.UserID, req.RecipientID)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	message := "Conversation already exists"
	if created {
		status = http.StatusCreated
		message = "Conversation started"
	}
	writeJSON(w, status, map[string]interface{}{
		"message":      message,
		"conversation": conversation,
	})
}

func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	identity, ok := appMiddleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, models.ErrInvalidToken)
		return
	}

	storageKey := chi.URLParam(r, "storageKey")
	if storageKey == "" {
		writeError(w, models.ErrInvalidRequest)
		return
	}

	msg, rc, err := h.messaging.OpenAttachment(r.Context(), storageKey, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	if msg.FileType != nil {
		w.Header().Set("Content-Type", *msg.FileType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if msg.FileName != nil {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", *msg.FileName))
	}
	if msg.FileSize != nil {
		w.Header().Set("Content-Length", strconv.FormatInt(*msg.FileSize, 10))
	}

	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("Error streaming file %s: %v", storageKey, err)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
