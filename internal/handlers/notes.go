package handlers

import (
	"net/http"

	"wallet-ledger/internal/models"

	"github.com/go-chi/chi/v5"
)

// ListNotes returns the checklist in order.
func (h *Handlers) ListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := h.notes.List(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": list})
}

func (h *Handlers) AddNote(w http.ResponseWriter, r *http.Request) {
	var draft models.NoteDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	n, err := h.notes.Add(r.Context(), userID(r), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *Handlers) EditNote(w http.ResponseWriter, r *http.Request) {
	var draft models.NoteDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	n, err := h.notes.Edit(r.Context(), userID(r), chi.URLParam(r, "id"), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handlers) ToggleNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.notes.Toggle(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handlers) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
