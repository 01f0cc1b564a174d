package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fetchkids/api/internal/platform/httpx"
	"github.com/fetchkids/api/internal/services"
)

// uploadMemoryLimit caps how much of a multipart body is buffered in memory
// before spilling to disk. The per-file size limit lives in the service.
const uploadMemoryLimit = 4 << 20

// UploadHandlers accepts customer media uploads.
type UploadHandlers struct {
	uploads services.UploadService
}

// NewUploadHandlers constructs a new UploadHandlers instance.
func NewUploadHandlers(uploads services.UploadService) *UploadHandlers {
	return &UploadHandlers{uploads: uploads}
}

// Routes registers the /uploads endpoints.
func (h *UploadHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.upload)
}

func (h *UploadHandlers) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.uploads == nil {
		httpx.WriteError(ctx, w, httpx.NewError("upload_service_unavailable", "upload service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", "request must be multipart form data"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", "a file part is required"))
		return
	}
	defer file.Close()

	result, err := h.uploads.Upload(ctx, services.UploadCommand{
		Folder:      r.FormValue("folder"),
		FileType:    r.FormValue("fileType"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		writeUploadError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(ctx, w, http.StatusCreated, map[string]any{
		"url":      result.URL,
		"publicId": result.PublicID,
		"format":   result.Format,
		"bytes":    result.Bytes,
		"folder":   result.Folder,
		"fileType": result.FileType,
	})
}

func writeUploadError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUploadTooLarge):
		httpx.WriteError(ctx, w, httpx.BadRequest("file_too_large", "file exceeds the 10MB upload limit"))
	case errors.Is(err, services.ErrUploadInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", trimSentinel(err.Error())))
	default:
		writeTranslated(ctx, w, err)
	}
}
