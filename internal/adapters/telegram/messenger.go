package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-checkin-bot/internal/domain"
	"tg-checkin-bot/internal/infra/metrics"
)

// Sender — часть tgbotapi.BotAPI, через которую идёт весь исходящий трафик.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger доставляет содержимое рассылок через Bot API.
type Messenger struct {
	api Sender
}

// NewMessenger создаёт отправителя.
func NewMessenger(api Sender) *Messenger {
	return &Messenger{api: api}
}

// Send отправляет payload в чат и возвращает идентификаторы всех доставленных сообщений.
// Длинный текст уходит несколькими частями. При сбое на середине вместе с ошибкой
// возвращаются идентификаторы уже доставленных частей.
func (m *Messenger) Send(ctx context.Context, chatID int64, payload domain.Payload) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chattables, err := buildChattables(chatID, payload)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(chattables))
	for _, c := range chattables {
		start := time.Now()
		msg, err := m.api.Send(c)
		metrics.ObserveNetworkRequest("telegram_bot", "send_"+string(payload.Kind), strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			return ids, fmt.Errorf("%w: часть %d из %d: %w", domain.ErrDelivery, len(ids)+1, len(chattables), err)
		}
		ids = append(ids, msg.MessageID)
	}
	return ids, nil
}

// Delete удаляет ранее отправленное сообщение.
func (m *Messenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	metrics.ObserveNetworkRequest("telegram_bot", "delete_message", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDelivery, err)
	}
	return nil
}

func buildChattables(chatID int64, payload domain.Payload) ([]tgbotapi.Chattable, error) {
	switch payload.Kind {
	case domain.PayloadText:
		parts := SplitMessage(payload.Text)
		if len(parts) == 0 {
			return nil, fmt.Errorf("%w: пустой текст", domain.ErrFormat)
		}
		out := make([]tgbotapi.Chattable, 0, len(parts))
		for _, part := range parts {
			out = append(out, tgbotapi.NewMessage(chatID, part))
		}
		return out, nil
	case domain.PayloadPhoto:
		file, err := requestFile(payload.Media)
		if err != nil {
			return nil, err
		}
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = payload.Caption
		return []tgbotapi.Chattable{photo}, nil
	case domain.PayloadVideo:
		file, err := requestFile(payload.Media)
		if err != nil {
			return nil, err
		}
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = payload.Caption
		return []tgbotapi.Chattable{video}, nil
	case domain.PayloadDocument:
		file, err := requestFile(payload.Media)
		if err != nil {
			return nil, err
		}
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = payload.Caption
		return []tgbotapi.Chattable{doc}, nil
	case domain.PayloadLocation:
		return []tgbotapi.Chattable{tgbotapi.NewLocation(chatID, payload.Location.Latitude, payload.Location.Longitude)}, nil
	case domain.PayloadPoll:
		if len(payload.Poll.Options) < 2 {
			return nil, domain.ErrInsufficientPollOptions
		}
		return []tgbotapi.Chattable{tgbotapi.NewPoll(chatID, payload.Poll.Question, payload.Poll.Options...)}, nil
	default:
		return nil, fmt.Errorf("%w: неизвестный тип %q", domain.ErrFormat, payload.Kind)
	}
}

func requestFile(ref domain.MediaRef) (tgbotapi.RequestFileData, error) {
	switch {
	case ref.FileID != "":
		return tgbotapi.FileID(ref.FileID), nil
	case ref.URL != "":
		return tgbotapi.FileURL(ref.URL), nil
	default:
		return nil, fmt.Errorf("%w: нет файла", domain.ErrFormat)
	}
}
