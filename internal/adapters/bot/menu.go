package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-checkin-bot/internal/usecase/conversation"
)

const (
	labelCheckin      = "✅ Подтвердить участие"
	labelScore        = "📊 Мои баллы"
	labelSendLocation = "📍 Отправить геолокацию"

	labelBroadcastText     = "✉️ Рассылка (админ)"
	labelBroadcastPhoto    = "🖼 Рассылка фото"
	labelBroadcastVideo    = "🎬 Рассылка видео"
	labelBroadcastFile     = "📎 Рассылка файла"
	labelBroadcastLocation = "🗺 Рассылка локации"
	labelBroadcastPoll     = "🗳 Опрос"
	labelSetTarget         = "🎯 Точка мероприятия"
	labelClearBroadcasts   = "🗑 Удалить рассылки"
	labelAssignAdmin       = "➕ Назначить админа"
	labelRevokeAdmin       = "➖ Снять админа"
)

// actionLabels переводит кнопки меню в действия; дальше по коду подписи не используются.
var actionLabels = map[string]conversation.ActionKind{
	labelBroadcastText:     conversation.ActionBroadcastText,
	labelBroadcastPhoto:    conversation.ActionBroadcastPhoto,
	labelBroadcastVideo:    conversation.ActionBroadcastVideo,
	labelBroadcastFile:     conversation.ActionBroadcastFile,
	labelBroadcastLocation: conversation.ActionBroadcastLocation,
	labelBroadcastPoll:     conversation.ActionBroadcastPoll,
	labelSetTarget:         conversation.ActionSetTarget,
	labelClearBroadcasts:   conversation.ActionClearRecentBroadcasts,
	labelAssignAdmin:       conversation.ActionAssignAdmin,
	labelRevokeAdmin:       conversation.ActionRevokeAdmin,
}

// ActionForLabel возвращает действие для подписи кнопки.
func ActionForLabel(label string) (conversation.ActionKind, bool) {
	action, ok := actionLabels[label]
	return action, ok
}

func mainMenu(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelCheckin),
			tgbotapi.NewKeyboardButton(labelScore),
		),
	}
	if isAdmin {
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(labelBroadcastText),
				tgbotapi.NewKeyboardButton(labelBroadcastPhoto),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(labelBroadcastVideo),
				tgbotapi.NewKeyboardButton(labelBroadcastFile),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(labelBroadcastLocation),
				tgbotapi.NewKeyboardButton(labelBroadcastPoll),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(labelSetTarget),
				tgbotapi.NewKeyboardButton(labelClearBroadcasts),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(labelAssignAdmin),
				tgbotapi.NewKeyboardButton(labelRevokeAdmin),
			),
		)
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	return markup
}

func locationKeyboard() tgbotapi.ReplyKeyboardMarkup {
	markup := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(labelSendLocation)),
	)
	markup.OneTimeKeyboard = true
	return markup
}
