package handlers

import (
	"errors"
	"net/http"

	"wallet-ledger/internal/attachments"
)

type uploadResponse struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
}

// UploadAttachment accepts a multipart "file" field, checks it and forwards
// it to the media host.
func (h *Handlers) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	if !h.uploader.Enabled() {
		sendError(w, "Attachment uploads are not configured", http.StatusServiceUnavailable, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, attachments.MaxSize+maxBodyBytes)
	if err := r.ParseMultipartForm(attachments.MaxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(w, r, attachments.ErrTooLarge)
			return
		}
		sendError(w, "Invalid multipart form", http.StatusBadRequest, nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		sendError(w, "Missing file field", http.StatusBadRequest, nil)
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url, Thumbnail: attachments.Thumbnail(url, 200)})
}
