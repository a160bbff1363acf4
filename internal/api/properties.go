package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"home_compare/internal/domain"
	minio "home_compare/internal/lib/minio/core"
)

// maxUploadBytes — предел размера загружаемого изображения.
const maxUploadBytes = 10 << 20

// ListProperties handles GET /api/v1/properties?sort=&order=.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := domain.NormalizeSortOptions(q.Get("sort"), q.Get("order"))

	ranked, err := h.properties.ListRanked(r.Context(), userID, opts)
	if err != nil {
		h.fail(w, r, "list properties failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"properties": rankedDomainToResponse(ranked),
		"sort":       opts,
	})
}

// CreateProperty handles POST /api/v1/properties.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var draft domain.PropertyDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		badRequest(w, err)
		return
	}

	p, err := h.properties.CreateProperty(r.Context(), userID, draft)
	if err != nil {
		h.fail(w, r, "create property failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, propertyDomainToResponse(p))
}

// GetProperty handles GET /api/v1/properties/{id}.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.properties.GetProperty(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, "get property failed", err)
		return
	}
	writeJSON(w, http.StatusOK, propertyDomainToResponse(p))
}

// UpdateProperty handles PATCH /api/v1/properties/{id}.
func (h *Handler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updatePropertyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	p, err := h.properties.UpdateProperty(r.Context(), userID, id, req.toDomain())
	if err != nil {
		h.fail(w, r, "update property failed", err)
		return
	}
	writeJSON(w, http.StatusOK, propertyDomainToResponse(p))
}

// DeleteProperty handles DELETE /api/v1/properties/{id}.
func (h *Handler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.properties.DeleteProperty(r.Context(), userID, id); err != nil {
		h.fail(w, r, "delete property failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SuggestScores handles POST /api/v1/properties/suggest-scores.
func (h *Handler) SuggestScores(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var draft domain.PropertyDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		badRequest(w, err)
		return
	}

	suggestion, err := h.properties.SuggestScores(r.Context(), userID, draft)
	if err != nil {
		h.fail(w, r, "suggest scores failed", err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

// ExtractProperty handles POST /api/v1/properties/extract.
func (h *Handler) ExtractProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req extractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	draft, err := h.extraction.ExtractFromURL(r.Context(), userID, req.URL)
	if err != nil {
		h.fail(w, r, "extract property failed", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// UploadImage handles POST /api/v1/properties/{id}/images (multipart/form-data, field "file").
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	contentType, err := imageContentType(header.Header.Get("Content-Type"), header.Filename, file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	url, err := h.properties.AddImage(r.Context(), userID, id, minio.Image{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.fail(w, r, "upload image failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// imageContentType определяет тип файла по заголовку части, расширению или содержимому
// и принимает только изображения.
func imageContentType(declared, filename string, file io.ReadSeeker) (string, error) {
	ct := declared
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	if ct == "" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(file, head)
		ct = http.DetectContentType(head[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
	}
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("unsupported content type %q", ct)
	}
	return ct, nil
}
