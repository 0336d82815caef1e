package handlers

import (
	"net/http"
	"strconv"

	"wallet-ledger/internal/models"

	"github.com/go-chi/chi/v5"
)

// ListExpenses returns the user's expenses, newest first. Optional query
// parameters: from and to (YYYY-MM-DD, both inclusive), sourceType,
// sourceId, category and limit.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := h.expenseFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	expenses, err := h.ledger.ListExpenses(r.Context(), userID(r), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *Handlers) expenseFilter(r *http.Request) (models.ExpenseFilter, error) {
	q := r.URL.Query()
	var f models.ExpenseFilter

	if s := q.Get("from"); s != "" {
		from, err := h.summary.ParseDay(s)
		if err != nil {
			return f, err
		}
		f.From = from
	}
	if s := q.Get("to"); s != "" {
		to, err := h.summary.ParseDay(s)
		if err != nil {
			return f, err
		}
		f.To = to.AddDate(0, 0, 1)
	}
	if kind := q.Get("sourceType"); kind != "" {
		ref, err := models.ParseSourceRef(kind, q.Get("sourceId"))
		if err != nil {
			return f, err
		}
		f.Source = &ref
	}
	if s := q.Get("category"); s != "" {
		c, err := models.ParseCategory(s)
		if err != nil {
			return f, err
		}
		f.Category = c
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return f, models.ErrInvalidDraft
		}
		f.Limit = n
	}
	return f, nil
}

// GetExpense returns one expense.
func (h *Handlers) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.ledger.GetExpense(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CreateExpense records an expense and charges its payment source.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var draft models.ExpenseDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	e, err := h.ledger.CreateExpense(r.Context(), userID(r), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// UpdateExpense replaces an expense and moves its balance effect.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var draft models.ExpenseDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	e, err := h.ledger.UpdateExpense(r.Context(), userID(r), chi.URLParam(r, "id"), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteExpense removes an expense and refunds its payment source.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteExpense(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
