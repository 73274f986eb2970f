package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"productory/internal/controller/middleware"
	"productory/internal/objectstore"
	"productory/internal/storagepath"
	"productory/pkg/api"
)

// multipart parts beyond this are spooled to disk
const uploadMemoryBytes = 32 << 20

// UploadFile handles POST /files.
// The "file" form part is stored under a freshly generated name in the caller's audio prefix.
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if r.ContentLength > h.cfg.UploadMaxBytes {
		h.httpError(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.UploadMaxBytes)
	if err := r.ParseMultipartForm(uploadMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.httpError(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.httpError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.httpError(w, "Missing file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name, err := h.paths.GenerateFormattedFilename(header.Filename)
	if err != nil {
		h.storageError(w, r, err)
		return
	}
	key, err := h.paths.AudioPath(userID, name)
	if err != nil {
		h.storageError(w, r, err)
		return
	}
	transcriptionPath, err := h.paths.TranscriptionPath(userID, name)
	if err != nil {
		h.storageError(w, r, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	bucket := h.paths.Config().DefaultBucket
	_, err = storagepath.WithRetry(ctx, h.paths, func(ctx context.Context) (struct{}, error) {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, h.objects.Put(ctx, bucket, key, file, header.Size, contentType)
	})
	if err != nil {
		h.log(r).Error("failed to store upload", "key", key, "error", err)
		h.httpError(w, "Failed to store file", http.StatusBadGateway)
		return
	}

	h.log(r).Info("file uploaded", "key", key, "size", header.Size)

	h.respondJson(w, http.StatusCreated, api.FileResponse{
		Name:              name,
		Path:              key,
		Size:              header.Size,
		ContentType:       contentType,
		TranscriptionPath: transcriptionPath,
		UploadedAt:        time.Now().UTC(),
	})
}

// ListFiles handles GET /files.
// Only objects directly under the caller's audio prefix are returned; derived
// artifacts in subfolders are skipped.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cfg := h.paths.Config()
	prefix := cfg.AudioPathPrefix + "/" + userID + "/"

	objects, err := h.objects.List(ctx, cfg.DefaultBucket, prefix)
	if err != nil {
		h.log(r).Error("failed to list files", "prefix", prefix, "error", err)
		h.httpError(w, "Failed to list files", http.StatusBadGateway)
		return
	}

	resp := api.ListFilesResponse{Files: make([]api.FileResponse, 0, len(objects))}
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		transcriptionPath, err := h.paths.TranscriptionPath(userID, name)
		if err != nil {
			h.storageError(w, r, err)
			return
		}
		resp.Files = append(resp.Files, api.FileResponse{
			Name:              name,
			Path:              obj.Key,
			Size:              obj.Size,
			ContentType:       obj.ContentType,
			TranscriptionPath: transcriptionPath,
			UploadedAt:        obj.LastModified,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}

// FileURLs handles GET /files/{name}/urls.
func (h *Handlers) FileURLs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	name := r.PathValue("name")
	key, err := h.paths.AudioPath(userID, name)
	if err != nil {
		h.storageError(w, r, err)
		return
	}

	resp := api.FileURLsResponse{Path: key}
	if resp.StoragePath, err = h.paths.FullStoragePath(key, ""); err != nil {
		h.storageError(w, r, err)
		return
	}
	if resp.PublicURL, err = h.paths.PublicURL(key, ""); err != nil {
		h.storageError(w, r, err)
		return
	}
	if resp.DownloadURL, err = h.paths.DownloadURL(key, ""); err != nil {
		h.storageError(w, r, err)
		return
	}
	if resp.TranscriptionPath, err = h.paths.TranscriptionPath(userID, name); err != nil {
		h.storageError(w, r, err)
		return
	}

	presigned, err := h.objects.PresignedGetURL(ctx, h.paths.Config().DefaultBucket, key, h.cfg.PresignExpiry)
	switch {
	case errors.Is(err, objectstore.ErrNotFound):
		h.httpError(w, "File not found", http.StatusNotFound)
		return
	case err != nil:
		// The canonical URLs are still useful without a signed one.
		h.log(r).Warn("failed to presign url", "key", key, "error", err)
	default:
		resp.PresignedURL = presigned
	}

	h.respondJson(w, http.StatusOK, resp)
}

// DeleteFile handles DELETE /files/{name}.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	key, err := h.paths.AudioPath(userID, r.PathValue("name"))
	if err != nil {
		h.storageError(w, r, err)
		return
	}

	err = h.objects.Remove(ctx, h.paths.Config().DefaultBucket, key)
	if errors.Is(err, objectstore.ErrNotFound) {
		h.httpError(w, "File not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log(r).Error("failed to delete file", "key", key, "error", err)
		h.httpError(w, "Failed to delete file", http.StatusBadGateway)
		return
	}

	h.log(r).Info("file deleted", "key", key)
	w.WriteHeader(http.StatusNoContent)
}
