package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"Bt1QSocial/logger"
	"Bt1QSocial/store"
)

const maxBodyBytes = 1 << 20

// 统一响应格式: {"success": true, "data": ...} / {"success": false, "error": "..."}
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("编码响应失败", logger.ErrorField(err))
	}
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, apiResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiResponse{Success: false, Error: msg})
}

// writeStoreError maps store errors onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrDuplicateEntity):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("请求处理失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeFound writes v, or 404 when v is a nil pointer.
func writeFound[T any](w http.ResponseWriter, v *T, what string) {
	if v == nil {
		writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	writeSuccess(w, http.StatusOK, v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
