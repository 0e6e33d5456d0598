package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Run раздаёт апдейты воркерам по ID отправителя: апдейты одного пользователя
// обрабатываются строго по порядку, разных пользователей — параллельно.
// Возвращается, когда закрыт канал или отменён контекст и воркеры доработали.
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update, workers int) {
	if workers <= 0 {
		workers = 1
	}
	shards := make([]chan tgbotapi.Update, workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan tgbotapi.Update, 16)
		wg.Add(1)
		go func(in <-chan tgbotapi.Update) {
			defer wg.Done()
			for upd := range in {
				h.HandleUpdate(ctx, upd)
			}
		}(shards[i])
	}
	defer func() {
		for _, ch := range shards {
			close(ch)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			shard := shards[shardOf(upd, workers)]
			select {
			case shard <- upd:
			case <-ctx.Done():
				return
			}
		}
	}
}

func shardOf(upd tgbotapi.Update, n int) int {
	var id int64
	if upd.Message != nil && upd.Message.From != nil {
		id = upd.Message.From.ID
	}
	if id < 0 {
		id = -id
	}
	return int(id % int64(n))
}
