// Package attachments checks receipt files and sends them to the media host.
package attachments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"wallet-ledger/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

// MaxSize is the largest accepted attachment.
const MaxSize = 10 << 20

// AllowedTypes lists the media types accepted as attachments.
var AllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"video/mp4",
	"video/quicktime",
}

var (
	ErrTooLarge        = fmt.Errorf("%w: file exceeds 10MB limit", models.ErrInvalidDraft)
	ErrUnsupportedType = fmt.Errorf("%w: only images and videos are allowed", models.ErrInvalidDraft)
	ErrEmpty           = fmt.Errorf("%w: file is empty", models.ErrInvalidDraft)
	ErrUploadFailed    = errors.New("attachment upload failed")
)

// Check validates an attachment by size and sniffed content, returning its
// media type.
func Check(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxSize {
		return "", ErrTooLarge
	}
	mtype := mimetype.Detect(data)
	for _, allowed := range AllowedTypes {
		if mtype.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: got %s", ErrUnsupportedType, mtype.String())
}

// Uploader posts files to an unsigned-preset upload endpoint.
type Uploader struct {
	client *http.Client
	url    string
	preset string
	logger *slog.Logger
}

// NewUploader creates an Uploader. An empty url disables uploads.
func NewUploader(url, preset string, logger *slog.Logger) *Uploader {
	return &Uploader{
		client: &http.Client{Timeout: 60 * time.Second},
		url:    url,
		preset: preset,
		logger: logger,
	}
}

// Enabled reports whether an upload endpoint is configured.
func (u *Uploader) Enabled() bool {
	return u != nil && u.url != ""
}

type uploadResponse struct {
	SecureURL    string `json:"secure_url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
	Bytes        int64  `json:"bytes"`
}

// Upload validates r and uploads it, returning the hosted URL.
func (u *Uploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", err
	}
	if _, err := Check(data); err != nil {
		return "", err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := form.WriteField("upload_preset", u.preset); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.Error("attachment upload failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		u.logger.Error("attachment upload rejected", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("%w: response has no secure_url", ErrUploadFailed)
	}

	u.logger.Info("attachment uploaded", "public_id", out.PublicID, "bytes", out.Bytes)
	return out.SecureURL, nil
}

// Thumbnail rewrites a hosted image URL to a resized variant. URLs that do
// not look like hosted uploads are returned as they are.
func Thumbnail(url string, width int) string {
	if width <= 0 {
		width = 200
	}
	parts := strings.Split(url, "/upload/")
	if len(parts) != 2 {
		return url
	}
	return fmt.Sprintf("%s/upload/w_%d,c_fill,q_auto,f_auto/%s", parts[0], width, parts[1])
}
