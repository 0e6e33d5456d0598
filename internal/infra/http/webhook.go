package http

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// SecretTokenHeader — заголовок, который Telegram добавляет к вебхуку при заданном secret_token.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// SecretTokenMiddleware отклоняет запросы без верного секрета вебхука.
// Пустой секрет отключает проверку.
func SecretTokenMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(SecretTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				WriteError(w, http.StatusUnauthorized, "секрет вебхука недействителен")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ErrorResponse описывает ошибку.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError отправляет JSON с ошибкой.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
