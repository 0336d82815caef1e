package handlers

import (
	"net/http"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/obligations"

	"github.com/go-chi/chi/v5"
)

type advancesResponse struct {
	Advances []models.Advance `json:"advances"`
	models.AdvanceTotals
}

type refundsResponse struct {
	Refunds []models.Refund `json:"refunds"`
	models.RefundTotals
}

// ListAdvances returns the advances with their totals by status.
func (h *Handlers) ListAdvances(w http.ResponseWriter, r *http.Request) {
	advances, err := h.obligations.ListAdvances(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, advancesResponse{Advances: advances, AdvanceTotals: obligations.AdvanceTotals(advances)})
}

func (h *Handlers) AddAdvance(w http.ResponseWriter, r *http.Request) {
	var draft models.AdvanceDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	a, err := h.obligations.AddAdvance(r.Context(), userID(r), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handlers) EditAdvance(w http.ResponseWriter, r *http.Request) {
	var draft models.AdvanceDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	a, err := h.obligations.EditAdvance(r.Context(), userID(r), chi.URLParam(r, "id"), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) MarkReturned(w http.ResponseWriter, r *http.Request) {
	a, err := h.obligations.MarkReturned(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) DeleteAdvance(w http.ResponseWriter, r *http.Request) {
	if err := h.obligations.DeleteAdvance(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRefunds returns the refunds with their totals by status.
func (h *Handlers) ListRefunds(w http.ResponseWriter, r *http.Request) {
	refunds, err := h.obligations.ListRefunds(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refundsResponse{Refunds: refunds, RefundTotals: obligations.RefundTotals(refunds)})
}

func (h *Handlers) AddRefund(w http.ResponseWriter, r *http.Request) {
	var draft models.RefundDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	ref, err := h.obligations.AddRefund(r.Context(), userID(r), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (h *Handlers) EditRefund(w http.ResponseWriter, r *http.Request) {
	var draft models.RefundDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	ref, err := h.obligations.EditRefund(r.Context(), userID(r), chi.URLParam(r, "id"), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (h *Handlers) MarkReceived(w http.ResponseWriter, r *http.Request) {
	ref, err := h.obligations.MarkReceived(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (h *Handlers) DeleteRefund(w http.ResponseWriter, r *http.Request) {
	if err := h.obligations.DeleteRefund(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
