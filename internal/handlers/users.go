package handlers

import (
	"net/http"
)

// ListStudents is the employer-facing student directory.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.users.Students(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"students": students})
}
