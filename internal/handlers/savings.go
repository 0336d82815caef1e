package handlers

import (
	"net/http"

	"wallet-ledger/internal/models"

	"github.com/go-chi/chi/v5"
)

// SavingsPINHeader carries the savings PIN on every request that reads or
// changes savings.
const SavingsPINHeader = "X-Savings-PIN"

func savingsPIN(r *http.Request) string {
	return r.Header.Get(SavingsPINHeader)
}

// SavingsStatus reports whether a PIN is set. It needs no PIN.
func (h *Handlers) SavingsStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.savings.Status(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) SetSavingsPIN(w http.ResponseWriter, r *http.Request) {
	var draft models.PINDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	if err := h.savings.SetPIN(r.Context(), userID(r), draft); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ChangeSavingsPIN(w http.ResponseWriter, r *http.Request) {
	var draft models.PINChangeDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	if err := h.savings.ChangePIN(r.Context(), userID(r), draft); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenSavings returns the savings with their accounts and total.
func (h *Handlers) OpenSavings(w http.ResponseWriter, r *http.Request) {
	s, err := h.savings.Open(r.Context(), userID(r), savingsPIN(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) SetSavingsCash(w http.ResponseWriter, r *http.Request) {
	var draft models.SavingsCashDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	s, err := h.savings.SetCash(r.Context(), userID(r), savingsPIN(r), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) AddSavingsAccount(w http.ResponseWriter, r *http.Request) {
	var draft models.SavingsAccountDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	a, err := h.savings.AddAccount(r.Context(), userID(r), savingsPIN(r), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handlers) UpdateSavingsAccount(w http.ResponseWriter, r *http.Request) {
	var draft models.SavingsAccountDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	a, err := h.savings.UpdateAccount(r.Context(), userID(r), savingsPIN(r), chi.URLParam(r, "id"), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) DeleteSavingsAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.savings.DeleteAccount(r.Context(), userID(r), savingsPIN(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
