package domain

import (
	"context"
	"time"
)

// ParticipantRepo хранит участников и их баллы.
type ParticipantRepo interface {
	GetParticipant(ctx context.Context, userID int64) (Participant, error)
	// UpsertParticipant создаёт участника или обновляет имя, не трогая баллы.
	// Второе значение true, если запись создана.
	UpsertParticipant(ctx context.Context, userID int64, name string) (Participant, bool, error)
	// UpdatePoints атомарно записывает баллы и дату последней отметки.
	UpdatePoints(ctx context.Context, userID int64, points int, day time.Time) error
	ListParticipantIDs(ctx context.Context) ([]int64, error)
}

// AdminRepo хранит список администраторов.
type AdminRepo interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	AddAdmin(ctx context.Context, userID int64) error
	RemoveAdmin(ctx context.Context, userID int64) error
	ListAdmins(ctx context.Context) ([]int64, error)
}

// Messenger отправляет содержимое в чат и отзывает отправленные сообщения.
type Messenger interface {
	// Send возвращает идентификаторы доставленных сообщений, в том числе при ошибке.
	Send(ctx context.Context, chatID int64, payload Payload) ([]int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get возвращает ErrCacheMiss, если ключа нет.
	Get(ctx context.Context, key string) ([]byte, error)
}
