package bot

import (
	"fmt"
	"strings"

	"tg-checkin-bot/internal/usecase/checkin"
	"tg-checkin-bot/internal/usecase/conversation"
)

const (
	textNoRights     = "❌ У вас нет прав на это действие."
	textUnknown      = "Неизвестная команда. Используйте /help"
	textInternal     = "Что-то пошло не так, попробуйте позже."
	textNotRegister  = "Ты ещё не зарегистрирован. Напиши /start."
	textAskLocation  = "Пожалуйста, отправь свою геолокацию, чтобы подтвердить участие:"
	textCancelled    = "Действие отменено."
	textNothingToEnd = "Нет активного действия."
)

func startMessage(name string, award int) string {
	return fmt.Sprintf("Привет, %s! Добро пожаловать в YES+ 🎉\n"+
		"%d баллов за участие в тимбилдинге. "+
		"Нажми кнопку, когда будешь на месте!", name, award)
}

func helpMessage(isAdmin bool) string {
	var b strings.Builder
	b.WriteString("Как это работает:\n")
	b.WriteString("1. /start — регистрация.\n")
	b.WriteString("2. На месте мероприятия нажми «" + labelCheckin + "» и отправь геолокацию.\n")
	b.WriteString("3. /score или «" + labelScore + "» — твои баллы.\n")
	b.WriteString("Баллы начисляются не чаще одного раза в день.")
	if isAdmin {
		b.WriteString("\n\nАдминистратору:\n")
		b.WriteString("• кнопки меню запускают рассылки и настройки;\n")
		b.WriteString("• /cancel отменяет текущее действие;\n")
		b.WriteString("• /admins показывает список администраторов.")
	}
	return b.String()
}

func checkinMessage(res checkin.Result, award int) string {
	switch res.Outcome {
	case checkin.Unregistered:
		return "Сначала напиши /start для регистрации."
	case checkin.AlreadyCheckedInToday:
		return "Ты уже подтвердил участие сегодня 😉"
	case checkin.Awarded:
		return fmt.Sprintf("✅ Участие подтверждено! +%d баллов 🎉", award)
	default:
		return "Ты находишься вне зоны мероприятия ❌ Баллы не начислены."
	}
}

func promptMessage(res conversation.Result) string {
	switch res.Action {
	case conversation.ActionBroadcastText:
		if res.Step == 1 {
			return "Введите текст для рассылки всем пользователям:"
		}
		return fmt.Sprintf("Отправить всем следующее сообщение?\n\n%s\n\nОтветьте «да» для подтверждения.", res.Text)
	case conversation.ActionBroadcastPhoto, conversation.ActionBroadcastVideo, conversation.ActionBroadcastFile:
		if res.Step == 1 {
			return mediaPrompt(res.Action)
		}
		return "Введите подпись или «нет», чтобы отправить без подписи:"
	case conversation.ActionBroadcastLocation:
		return "Отправьте геолокацию для рассылки:"
	case conversation.ActionBroadcastPoll:
		switch res.Step {
		case 1:
			return "Введите вопрос опроса:"
		case 2:
			return "Введите варианты ответа через «;», от 2 до 10:"
		default:
			return fmt.Sprintf("Опрос: %s\nВарианты: %s\n\nОтправить? Ответьте «да» для подтверждения.", res.Text, strings.Join(res.Options, " / "))
		}
	case conversation.ActionSetTarget:
		return "Введите широту, долготу и радиус в метрах через пробел, например: 41.356015 69.314663 150"
	case conversation.ActionAssignAdmin:
		return "Введите Telegram ID нового администратора:"
	case conversation.ActionRevokeAdmin:
		return "Введите Telegram ID администратора, которого нужно снять:"
	case conversation.ActionClearRecentBroadcasts:
		if res.Step == 1 {
			return "Сколько последних сообщений рассылки удалить?"
		}
		return fmt.Sprintf("Удалить последние %d сообщений рассылки? Ответьте «да» для подтверждения.", res.Requested)
	default:
		return textUnknown
	}
}

func mediaPrompt(action conversation.ActionKind) string {
	switch action {
	case conversation.ActionBroadcastPhoto:
		return "Отправьте фото или ссылку на него:"
	case conversation.ActionBroadcastVideo:
		return "Отправьте видео или ссылку на него:"
	default:
		return "Отправьте файл или ссылку на него:"
	}
}

// resultMessage превращает итог шага диалога в текст для администратора.
func resultMessage(res conversation.Result) string {
	switch res.Outcome {
	case conversation.OutcomeAwaitInput:
		return promptMessage(res)
	case conversation.OutcomeForbidden:
		return textNoRights
	case conversation.OutcomeInsufficientPollOptions:
		return "Нужно минимум 2 непустых варианта через «;». Попробуйте ещё раз:"
	case conversation.OutcomeTooManyPollOptions:
		return fmt.Sprintf("Telegram допускает не больше 10 вариантов, получено %d. Попробуйте ещё раз:", res.Count)
	case conversation.OutcomeFormatError:
		return formatErrorMessage(res.Action)
	case conversation.OutcomeCancelled:
		return textCancelled
	case conversation.OutcomeBroadcastSent:
		msg := fmt.Sprintf("✅ Рассылка завершена. Отправлено: %d", res.Report.Succeeded)
		if res.Report.Failed() > 0 {
			msg += fmt.Sprintf("\nНе доставлено: %d", res.Report.Failed())
		}
		return msg
	case conversation.OutcomeTargetUpdated:
		return fmt.Sprintf("🎯 Точка мероприятия обновлена: %.6f, %.6f, радиус %.0f м", res.Target.Latitude, res.Target.Longitude, res.Target.RadiusMeters)
	case conversation.OutcomeAdminAdded:
		return fmt.Sprintf("✅ Пользователь %d назначен администратором.", res.AdminID)
	case conversation.OutcomeAdminRemoved:
		return fmt.Sprintf("✅ Пользователь %d больше не администратор.", res.AdminID)
	case conversation.OutcomePrimaryProtected:
		return "❌ Нельзя снять главного администратора."
	case conversation.OutcomeRetracted:
		return fmt.Sprintf("🗑 Удалено сообщений: %d из %d.", res.Count, res.Requested)
	default:
		return textInternal
	}
}

func formatErrorMessage(action conversation.ActionKind) string {
	switch action {
	case conversation.ActionSetTarget:
		return "Неверный формат. Ожидается: широта долгота радиус. Точка не изменена."
	case conversation.ActionAssignAdmin, conversation.ActionRevokeAdmin:
		return "Неверный Telegram ID, действие отменено."
	case conversation.ActionClearRecentBroadcasts:
		return "Нужно положительное целое число, действие отменено."
	case conversation.ActionBroadcastLocation:
		return "Ожидалась геолокация, рассылка отменена."
	default:
		return "Неверный формат ввода, рассылка отменена."
	}
}
