package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	CheckinOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkin_outcomes_total",
		Help: "Результаты попыток подтвердить участие",
	}, []string{"outcome"})

	BroadcastDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_deliveries_total",
		Help: "Доставки сообщений рассылки по получателям",
	}, []string{"kind", "status"})

	BroadcastRetractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_retractions_total",
		Help: "Попытки отозвать сообщения рассылки",
	}, []string{"status"})

	ConversationResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_results_total",
		Help: "Шаги админских диалогов по действиям и исходам",
	}, []string{"action", "outcome"})

	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		NetworkRequestDuration,
		NetworkRequestTotal,
		CheckinOutcomes,
		BroadcastDeliveries,
		BroadcastRetractions,
		ConversationResults,
		BotSendErrors,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncCheckin учитывает исход отметки.
func IncCheckin(outcome string) {
	CheckinOutcomes.WithLabelValues(outcome).Inc()
}

// IncDelivery учитывает доставку одного сообщения рассылки.
func IncDelivery(kind string, err error) {
	BroadcastDeliveries.WithLabelValues(kind, statusOf(err)).Inc()
}

// IncRetraction учитывает попытку удалить сообщение рассылки.
func IncRetraction(err error) {
	BroadcastRetractions.WithLabelValues(statusOf(err)).Inc()
}

// IncConversation учитывает шаг диалога.
func IncConversation(action, outcome string) {
	ConversationResults.WithLabelValues(action, outcome).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
