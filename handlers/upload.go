package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/middleware"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/service"
)

const profileImageURLExpiry = 60 * time.Second

// uploadKinds maps a sniffed content type to its storage prefix and extension.
var uploadKinds = map[string]struct{ prefix, ext string }{
	"image/jpeg":      {"covers", ".jpg"},
	"image/png":       {"covers", ".png"},
	"image/webp":      {"covers", ".webp"},
	"application/pdf": {"books", ".pdf"},
}

// UploadHandler stores covers and manuscripts. Blobs is nil when no bucket
// is configured.
type UploadHandler struct {
	Blobs    service.BlobStore
	MaxBytes int64
}

func errUploadsDisabled() error {
	return apperr.Unavailable("File uploads are not configured")
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sess, err := session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sess.Role != models.RoleAuthor && sess.Role != models.RoleAdmin {
		writeError(w, r, apperr.Forbidden(""))
		return
	}
	if h.Blobs == nil {
		writeError(w, r, errUploadsDisabled())
		return
	}

	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if isTooLarge(err) {
			writeError(w, r, payloadTooLarge("File too large"))
			return
		}
		writeError(w, r, apperr.Validation("Invalid multipart form"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.Validation("File is required", apperr.FieldError{Field: "file", Message: "required"}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	kind, ok := uploadKinds[contentType]
	if !ok {
		writeError(w, r, apperr.Validation("Only JPEG, PNG, WebP images and PDF files are allowed"))
		return
	}

	key, err := h.Blobs.Upload(r.Context(), kind.prefix, "upload"+kind.ext, bytes.NewReader(data), contentType)
	if err != nil {
		writeError(w, r, apperr.ExternalService("Could not store file", err))
		return
	}
	middleware.Logger(r.Context()).Info("file uploaded", "key", key, "content_type", contentType, "bytes", len(data))
	writeJSON(w, http.StatusCreated, map[string]string{"url": h.Blobs.PublicURL(key), "key": key})
}

// ProfileImageUploadURL hands the browser a short-lived presigned PUT URL.
func (h *UploadHandler) ProfileImageUploadURL(w http.ResponseWriter, r *http.Request) {
	if h.Blobs == nil {
		writeError(w, r, errUploadsDisabled())
		return
	}
	key := service.NewBlobKey("profile-images", ".jpg")
	uploadURL, err := h.Blobs.PresignedPutURL(r.Context(), key, "image/jpeg", profileImageURLExpiry)
	if err != nil {
		writeError(w, r, apperr.ExternalService("Could not create upload URL", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uploadUrl": uploadURL,
		"publicUrl": h.Blobs.PublicURL(key),
		"key":       key,
		"expiresIn": int(profileImageURLExpiry.Seconds()),
	})
}
