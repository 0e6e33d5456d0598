package bot

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	httpinfra "tg-checkin-bot/internal/infra/http"
)

// WebhookHandler принимает апдейты от Telegram, кладёт их в очередь и сразу отвечает 200.
// Очередь разбирает Run, так что долгая рассылка не держит запрос Telegram открытым.
// Если очередь не приняла апдейт до разрыва соединения, отвечаем 503 и Telegram повторит его.
func (h *Handler) WebhookHandler(queue chan<- tgbotapi.Update) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "некорректный апдейт")
			return
		}
		select {
		case queue <- update:
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
			h.log.Warn().Int("update_id", update.UpdateID).Msg("очередь апдейтов переполнена")
			httpinfra.WriteError(w, http.StatusServiceUnavailable, "очередь переполнена")
		}
	}
}
