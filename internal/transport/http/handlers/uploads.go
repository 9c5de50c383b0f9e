package handlers

import (
	"net/http"
)

type presignRequest struct {
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
}

type presignResponse struct {
	UploadURL      string            `json:"upload_url"`
	Key            string            `json:"key"`
	ExpiresSeconds int64             `json:"expires_seconds"`
	RequiredHeader map[string]string `json:"required_header,omitempty"`
}

type confirmUploadRequest struct {
	Key string `json:"key"`
}

type confirmUploadResponse struct {
	URL string `json:"url"`
}

// PresignUpload — POST /uploads/presign. Выдаёт presigned PUT URL,
// сам файл сервис не проксирует.
func (h *Handlers) PresignUpload(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	var req presignRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	info, err := h.svc.UploadURL(r.Context(), c, req.ContentType, req.ContentLength)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presignResponse{
		UploadURL:      info.UploadURL,
		Key:            info.Key,
		ExpiresSeconds: int64(info.Expires.Seconds()),
		RequiredHeader: info.RequiredHeader,
	})
}

// ConfirmUpload — POST /uploads/confirm. Проверяет, что объект действительно
// загружен и принадлежит вызывающему, и возвращает публичный URL.
func (h *Handlers) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	var req confirmUploadRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	url, err := h.svc.ConfirmUpload(r.Context(), c, req.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmUploadResponse{URL: url})
}
