package handlers

import (
	"net/http"
	"strconv"

	"WorkBridge/server/internal/appMiddleware"
	"WorkBridge/server/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ApplyForJob(w http.ResponseWriter, r *http.Request) {
	identity, ok := appMiddleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, models.ErrInvalidToken)
		return
	}

	var req struct {
		EmployerID int    `json:"employer_id" validate:"required"`
		JobTitle   string `json:"job_title" validate:"required,max=200"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	application, err := h.jobs.Apply(r.Context(), identity.UserID, req.EmployerID, req.JobTitle)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Application submitted successfully",
		"application": application,
	})
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	identity, ok := appMiddleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, models.ErrInvalidToken)
		return
	}

	applications, err := h.jobs.ListForUser(r.Context(), identity.UserID, identity.UserType)
	if err != nil {
		writeError(w, err)
		return
	}
	if applications == nil {
		applications = []models.JobApplication{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": applications})
}

func (h *Handler) AcceptApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := appMiddleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, models.ErrInvalidToken)
		return
	}

	applicationID, err := urlParamInt(r, "applicationID")
	if err != nil {
		writeError(w, err)
		return
	}

	application, conversation, err := h.jobs.Accept(r.Context(), identity.UserID, applicationID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Application accepted and conversation created",
		"application":  application,
		"conversation": conversation,
	})
}

func (h *Handler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := appMiddleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, models.ErrInvalidToken)
		return
	}

	applicationID, err := urlParamInt(r, "applicationID")
	if err != nil {
		writeError(w, err)
		return
	}

	application, err := h.jobs.Reject(r.Context(), identity.UserID, applicationID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Application rejected",
		"application": application,
	})
}

func urlParamInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || value <= 0 {
		return 0, models.ErrInvalidRequest
	}
	return value, nil
}
