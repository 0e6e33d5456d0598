package broadcast

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tg-checkin-bot/internal/domain"
	"tg-checkin-bot/internal/infra/metrics"
)

// DefaultWorkers — число параллельных отправок по умолчанию.
const DefaultWorkers = 4

// Dispatcher рассылает содержимое всем участникам по принципу best effort
// и умеет отзывать последние доставленные сообщения.
type Dispatcher struct {
	repo      domain.ParticipantRepo
	messenger domain.Messenger
	log       *DeliveryLog
	workers   int
	logger    zerolog.Logger
}

// NewDispatcher создаёт диспетчер.
func NewDispatcher(repo domain.ParticipantRepo, messenger domain.Messenger, workers int, logger zerolog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{
		repo:      repo,
		messenger: messenger,
		log:       &DeliveryLog{},
		workers:   workers,
		logger:    logger,
	}
}

// Log возвращает журнал доставок.
func (d *Dispatcher) Log() *DeliveryLog {
	return d.log
}

// Broadcast отправляет payload каждому участнику из свежего снимка списка.
// Ошибка отправки одному получателю не прерывает рассылку остальным.
// В журнал попадает каждое доставленное сообщение, включая части недоставленного текста.
func (d *Dispatcher) Broadcast(ctx context.Context, payload domain.Payload) (domain.DeliveryReport, error) {
	recipients, err := d.repo.ListParticipantIDs(ctx)
	if err != nil {
		return domain.DeliveryReport{}, fmt.Errorf("%w: список участников: %w", domain.ErrPersistence, err)
	}
	report := domain.DeliveryReport{ID: uuid.NewString(), Attempted: len(recipients)}
	logger := d.logger.With().Str("broadcast_id", report.ID).Str("kind", string(payload.Kind)).Logger()

	var (
		mu        sync.Mutex
		delivered = make([]domain.Delivery, 0, len(recipients))
		succeeded int
		failed    []int64
	)
	g := new(errgroup.Group)
	g.SetLimit(d.workers)
	for _, id := range recipients {
		g.Go(func() error {
			msgIDs, err := d.messenger.Send(ctx, id, payload)
			metrics.IncDelivery(string(payload.Kind), err)
			mu.Lock()
			defer mu.Unlock()
			for _, msgID := range msgIDs {
				delivered = append(delivered, domain.Delivery{RecipientID: id, MessageID: msgID})
			}
			if err != nil {
				logger.Warn().Err(err).Int64("chat_id", id).Int("delivered_parts", len(msgIDs)).Msg("не удалось доставить сообщение")
				failed = append(failed, id)
				return nil
			}
			succeeded++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	report.Succeeded = succeeded
	report.FailedIDs = failed
	d.log.Append(delivered...)

	logger.Info().Int("attempted", report.Attempted).Int("succeeded", report.Succeeded).Int("failed", report.Failed()).Msg("рассылка завершена")
	return report, nil
}

// RetractLast удаляет последние n доставленных сообщений и возвращает число удалённых.
// Записи, которые удалить не удалось, остаются в журнале для повторной попытки.
func (d *Dispatcher) RetractLast(ctx context.Context, n int) int {
	entries := d.log.Suffix(n)
	if len(entries) == 0 {
		return 0
	}
	var (
		mu      sync.Mutex
		removed = make([]domain.Delivery, 0, len(entries))
	)
	g := new(errgroup.Group)
	g.SetLimit(d.workers)
	for _, e := range entries {
		g.Go(func() error {
			err := d.messenger.Delete(ctx, e.RecipientID, e.MessageID)
			metrics.IncRetraction(err)
			if err != nil {
				d.logger.Warn().Err(err).Int64("chat_id", e.RecipientID).Int("message_id", e.MessageID).Msg("не удалось удалить сообщение")
				return nil
			}
			mu.Lock()
			removed = append(removed, e)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	d.log.Remove(removed)
	d.logger.Info().Int("requested", n).Int("retracted", len(removed)).Msg("сообщения рассылки удалены")
	return len(removed)
}
