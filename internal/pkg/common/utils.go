package common

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// WriteErrorResponse 寫入錯誤響應
func WriteErrorResponse(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// WriteError 依錯誤類型寫入錯誤響應，5xx 只回傳預定義訊息
func WriteError(w http.ResponseWriter, err error) {
	status, code := HTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = ErrInternalError.Message
		var ce *CustomError
		if errors.As(err, &ce) {
			message = ce.Message
		}
	}
	WriteErrorResponse(w, status, code, message)
}
