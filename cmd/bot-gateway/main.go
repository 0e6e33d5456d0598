package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tg-checkin-bot/internal/adapters/bot"
	"tg-checkin-bot/internal/adapters/repo"
	"tg-checkin-bot/internal/adapters/telegram"
	"tg-checkin-bot/internal/domain"
	"tg-checkin-bot/internal/infra/cache"
	"tg-checkin-bot/internal/infra/config"
	"tg-checkin-bot/internal/infra/db"
	httpinfra "tg-checkin-bot/internal/infra/http"
	"tg-checkin-bot/internal/infra/log"
	"tg-checkin-bot/internal/infra/metrics"
	"tg-checkin-bot/internal/usecase/admins"
	"tg-checkin-bot/internal/usecase/broadcast"
	"tg-checkin-bot/internal/usecase/checkin"
	"tg-checkin-bot/internal/usecase/conversation"
	"tg-checkin-bot/internal/usecase/target"
)

type store interface {
	domain.ParticipantRepo
	domain.AdminRepo
	Migrate(ctx context.Context) error
}

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("не удалось подключиться к БД")
	}
	defer closeStore()
	if err := st.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("не удалось подготовить схему БД")
	}

	var kv domain.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к Redis")
		}
		defer client.Close()
		kv = cache.NewRedis(client, "checkin:")
	} else {
		logger.Warn().Msg("REDIS_ADDR не задан: точка мероприятия хранится в памяти, повторы апдейтов не отсеиваются")
	}

	adminService := admins.NewService(st, cfg.AdminID)
	if err := adminService.EnsurePrimary(ctx); err != nil {
		logger.Fatal().Err(err).Msg("не удалось записать главного администратора")
	}

	initial := domain.Target{
		Location:     domain.Location{Latitude: cfg.Event.TargetLat, Longitude: cfg.Event.TargetLon},
		RadiusMeters: cfg.Event.RadiusMeters,
	}
	targetService, err := target.NewService(initial, kv, log.Component(logger, "target"))
	if err != nil {
		logger.Fatal().Err(err).Msg("некорректная точка мероприятия в конфиге")
	}
	if err := targetService.Load(ctx); err != nil {
		logger.Error().Err(err).Msg("не удалось восстановить точку мероприятия, используем конфиг")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}

	checkinService := checkin.NewService(st, targetService, cfg.Event.Award)
	dispatcher := broadcast.NewDispatcher(st, telegram.NewMessenger(botAPI), cfg.Broadcast.Workers, log.Component(logger, "broadcast"))
	tokens := conversation.NewTokens(cfg.Lang, cfg.Dialog.ConfirmTokens, cfg.Dialog.SkipTokens)
	machine := conversation.NewMachine(conversation.NewStore(cfg.Dialog.TTL), adminService, targetService, dispatcher, tokens, log.Component(logger, "conversation"))
	h := bot.NewHandler(botAPI, log.Component(logger, "bot"), checkinService, adminService, machine, kv, cfg.Location())

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Telegram.WebhookURL != "" {
		if err := registerWebhook(botAPI, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			logger.Fatal().Err(err).Msg("не удалось зарегистрировать вебхук")
		}
		queue := make(chan tgbotapi.Update, webhookQueueSize)
		srv := httpinfra.NewServer(log.Component(logger, "http"))
		srv.Router.With(httpinfra.SecretTokenMiddleware(cfg.Telegram.WebhookSecret)).Post("/bot/webhook", h.WebhookHandler(queue))
		g.Go(func() error {
			h.Run(gctx, queue, cfg.Broadcast.Workers)
			return nil
		})
		g.Go(func() error {
			return srv.Start(":" + strconv.Itoa(cfg.Port))
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	} else {
		metrics.StartServer(gctx, logger, cfg.MetricsAddr)
		g.Go(func() error {
			return poll(gctx, botAPI, h, cfg.Broadcast.Workers, logger)
		})
	}

	logger.Info().Str("store", cfg.Store.Driver).Bool("webhook", cfg.Telegram.WebhookURL != "").Msg("бот запущен")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("бот остановлен с ошибкой")
	}
	logger.Info().Msg("остановка бота")
}

// webhookQueueSize — сколько принятых вебхуком апдейтов может ждать обработки.
const webhookQueueSize = 256

func openStore(cfg config.AppConfig) (store, func(), error) {
	switch cfg.Store.Driver {
	case "sqlite":
		conn, err := db.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewSQLite(conn), func() { _ = conn.Close() }, nil
	default:
		pool, err := db.Connect(cfg.Store.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewPostgres(pool), pool.Close, nil
	}
}

func registerWebhook(api *tgbotapi.BotAPI, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	_, err := api.MakeRequest("setWebhook", params)
	return err
}

// poll читает апдейты long polling'ом, пока не отменён контекст.
func poll(ctx context.Context, api *tgbotapi.BotAPI, h *bot.Handler, workers int, logger zerolog.Logger) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn().Err(err).Msg("не удалось снять вебхук перед long polling")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()
	h.Run(ctx, updates, workers)
	return nil
}
