package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"wallet-ledger/internal/attachments"
	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, message string, status int, details map[string]string) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// decodeJSON reads exactly one JSON object into dst. On failure it writes
// the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		sendError(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		sendError(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{models.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
	{models.ErrMissingSourceSelection, http.StatusUnprocessableEntity, "missing_source_selection"},
	{models.ErrSourceNotFound, http.StatusNotFound, "source_not_found"},
	{models.ErrExpenseNotFound, http.StatusNotFound, "expense_not_found"},
	{models.ErrObligationNotFound, http.StatusNotFound, "obligation_not_found"},
	{models.ErrSavingsAccountNotFound, http.StatusNotFound, "savings_account_not_found"},
	{models.ErrNoteNotFound, http.StatusNotFound, "note_not_found"},
	{models.ErrIncorrectPIN, http.StatusForbidden, "incorrect_pin"},
	{models.ErrSavingsLocked, http.StatusTooManyRequests, "savings_locked"},
	{models.ErrPINNotSet, http.StatusConflict, "pin_not_set"},
	{models.ErrPINAlreadySet, http.StatusConflict, "pin_already_set"},
	{models.ErrInvalidDraft, http.StatusUnprocessableEntity, "invalid_input"},
	{models.ErrUnrecognizedValue, http.StatusUnprocessableEntity, "invalid_input"},
	{storage.ErrConflict, http.StatusConflict, "conflict"},
	{attachments.ErrUploadFailed, http.StatusBadGateway, "upload_failed"},
	{models.ErrTransactionFailed, http.StatusInternalServerError, "transaction_failed"},
}

// fail maps a service error to its HTTP status and writes it.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: "Internal server error", Code: "internal"}
	status := http.StatusInternalServerError

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, resp.Code = m.status, m.code
			resp.Error = err.Error()
			break
		}
	}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		resp.Error = "Validation failed"
		resp.Details = verr.Fields
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "user_id", userID(r), "error", err)
		resp.Error = http.StatusText(status)
	}
	writeJSON(w, status, resp)
}
