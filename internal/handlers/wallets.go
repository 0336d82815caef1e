package handlers

import (
	"net/http"
	"strconv"

	"wallet-ledger/internal/models"

	"github.com/go-chi/chi/v5"
)

// Wallets returns every payment source with the overall totals.
func (h *Handlers) Wallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.ledger.Wallets(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wallets)
}

func (h *Handlers) AddBankAccount(w http.ResponseWriter, r *http.Request) {
	var draft models.BankAccountDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	b, err := h.ledger.AddBankAccount(r.Context(), userID(r), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) UpdateBankAccount(w http.ResponseWriter, r *http.Request) {
	var draft models.BankAccountDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	b, err := h.ledger.UpdateBankAccount(r.Context(), userID(r), chi.URLParam(r, "id"), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) DeleteBankAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteBankAccount(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) AddCreditCard(w http.ResponseWriter, r *http.Request) {
	var draft models.CreditCardDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	c, err := h.ledger.AddCreditCard(r.Context(), userID(r), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) UpdateCreditCard(w http.ResponseWriter, r *http.Request) {
	var draft models.CreditCardDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	c, err := h.ledger.UpdateCreditCard(r.Context(), userID(r), chi.URLParam(r, "id"), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) DeleteCreditCard(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteCreditCard(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCash overwrites the cash balance.
func (h *Handlers) SetCash(w http.ResponseWriter, r *http.Request) {
	var draft models.CashDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	cash, err := h.ledger.SetCash(r.Context(), userID(r), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cash)
}

// History lists the recent balance changes of one source. The kind comes
// from the path; bank accounts and cards also need ?id=.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	ref, err := models.ParseSourceRef(chi.URLParam(r, "kind"), r.URL.Query().Get("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	changes, err := h.ledger.History(r.Context(), userID(r), ref, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}
