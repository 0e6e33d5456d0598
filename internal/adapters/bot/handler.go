package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-checkin-bot/internal/adapters/telegram"
	"tg-checkin-bot/internal/domain"
	"tg-checkin-bot/internal/infra/metrics"
	"tg-checkin-bot/internal/usecase/admins"
	"tg-checkin-bot/internal/usecase/checkin"
	"tg-checkin-bot/internal/usecase/conversation"
)

// updateTTL — сколько помнить обработанные update_id; Telegram повторяет вебхук недолго.
const updateTTL = 24 * time.Hour

// Handler обслуживает входящие апдейты бота.
type Handler struct {
	api       telegram.Sender
	log       zerolog.Logger
	checkinUC *checkin.Service
	adminsUC  *admins.Service
	machine   *conversation.Machine
	cache     domain.Cache
	loc       *time.Location
	now       func() time.Time
	locks     *keyedMutex
}

// NewHandler создаёт обработчик. cache может быть nil, тогда повторные апдейты не отсеиваются.
func NewHandler(api telegram.Sender, log zerolog.Logger, checkinUC *checkin.Service, adminsUC *admins.Service, machine *conversation.Machine, cache domain.Cache, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		api:       api,
		log:       log,
		checkinUC: checkinUC,
		adminsUC:  adminsUC,
		machine:   machine,
		cache:     cache,
		loc:       loc,
		now:       time.Now,
		locks:     newKeyedMutex(),
	}
}

// HandleUpdate обрабатывает входящий апдейт. Повторно доставленные апдейты пропускаются.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if h.cache == nil {
		h.dispatch(ctx, upd)
		return
	}
	key := "update:" + strconv.Itoa(upd.UpdateID)
	processed := false
	err := h.cache.Once(ctx, key, updateTTL, func() error {
		processed = true
		h.dispatch(ctx, upd)
		return nil
	})
	if err != nil && !processed {
		h.log.Warn().Err(err).Int("update_id", upd.UpdateID).Msg("не удалось проверить повтор апдейта, обрабатываем")
		h.dispatch(ctx, upd)
		return
	}
	if !processed {
		h.log.Debug().Int("update_id", upd.UpdateID).Msg("повторный апдейт пропущен")
	}
}

func (h *Handler) dispatch(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	unlock := h.locks.Lock(msg.From.ID)
	defer unlock()
	h.handleMessage(ctx, msg)
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	actorID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		h.handleCommand(ctx, msg, commandOf(text))
		return
	}
	switch text {
	case labelCheckin:
		h.reply(chatID, textAskLocation, locationKeyboard())
		return
	case labelScore:
		h.handleScore(ctx, chatID, actorID)
		return
	}
	if action, ok := ActionForLabel(text); ok {
		res := h.machine.Begin(ctx, actorID, action)
		h.replyResult(ctx, chatID, actorID, res)
		return
	}
	if res, ok := h.machine.Advance(ctx, actorID, eventOf(msg)); ok {
		h.replyResult(ctx, chatID, actorID, res)
		return
	}
	if msg.Location != nil {
		h.handleLocation(ctx, chatID, actorID, msg.Location)
		return
	}
	h.reply(chatID, textUnknown, mainMenu(h.isAdmin(ctx, actorID)))
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message, cmd string) {
	chatID := msg.Chat.ID
	actorID := msg.From.ID
	switch cmd {
	case "start":
		h.handleStart(ctx, msg)
	case "score":
		h.handleScore(ctx, chatID, actorID)
	case "help":
		isAdmin := h.isAdmin(ctx, actorID)
		h.reply(chatID, helpMessage(isAdmin), mainMenu(isAdmin))
	case "cancel":
		if h.machine.Cancel(actorID) {
			h.reply(chatID, textCancelled, mainMenu(h.isAdmin(ctx, actorID)))
			return
		}
		h.reply(chatID, textNothingToEnd, nil)
	case "admins":
		h.handleAdmins(ctx, chatID, actorID)
	default:
		h.reply(chatID, textUnknown, nil)
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	name := displayName(msg.From)
	participant, created, err := h.checkinUC.Register(ctx, msg.From.ID, name)
	if err != nil {
		h.log.Error().Err(err).Int64("user", msg.From.ID).Msg("не удалось зарегистрировать участника")
		h.reply(msg.Chat.ID, textInternal, nil)
		return
	}
	if created {
		h.log.Info().Int64("user", participant.UserID).Msg("новый участник")
	}
	h.reply(msg.Chat.ID, startMessage(name, h.checkinUC.Award()), mainMenu(h.isAdmin(ctx, msg.From.ID)))
}

func (h *Handler) handleScore(ctx context.Context, chatID, actorID int64) {
	points, err := h.checkinUC.Score(ctx, actorID)
	switch {
	case errors.Is(err, domain.ErrNotRegistered):
		h.reply(chatID, textNotRegister, nil)
	case err != nil:
		h.log.Error().Err(err).Int64("user", actorID).Msg("не удалось получить баллы")
		h.reply(chatID, textInternal, nil)
	default:
		h.reply(chatID, fmt.Sprintf("У тебя %d баллов 🟢", points), mainMenu(h.isAdmin(ctx, actorID)))
	}
}

func (h *Handler) handleLocation(ctx context.Context, chatID, actorID int64, l *tgbotapi.Location) {
	loc := domain.Location{Latitude: l.Latitude, Longitude: l.Longitude}
	today := h.now().In(h.loc)
	res, err := h.checkinUC.Evaluate(ctx, actorID, loc, today)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLocation) {
			h.reply(chatID, "Не удалось распознать геолокацию, попробуй ещё раз.", nil)
			return
		}
		h.log.Error().Err(err).Int64("user", actorID).Msg("не удалось обработать отметку")
		h.reply(chatID, "Не удалось сохранить отметку, попробуй позже.", nil)
		return
	}
	h.log.Info().Int64("user", actorID).Stringer("outcome", res.Outcome).AnErr("reason", res.Err()).Float64("distance", res.Distance).Msg("отметка участника")
	h.reply(chatID, checkinMessage(res, h.checkinUC.Award()), mainMenu(h.isAdmin(ctx, actorID)))
}

func (h *Handler) handleAdmins(ctx context.Context, chatID, actorID int64) {
	if !h.isAdmin(ctx, actorID) {
		h.reply(chatID, textNoRights, nil)
		return
	}
	ids, err := h.adminsUC.List(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось получить список администраторов")
		h.reply(chatID, textInternal, nil)
		return
	}
	var b strings.Builder
	b.WriteString("Администраторы:\n")
	for _, id := range ids {
		line := strconv.FormatInt(id, 10)
		if id == h.adminsUC.Primary() {
			line += " (главный)"
		}
		b.WriteString(line + "\n")
	}
	h.reply(chatID, b.String(), nil)
}

func (h *Handler) replyResult(ctx context.Context, chatID, actorID int64, res conversation.Result) {
	if res.Outcome == conversation.OutcomeFailed {
		h.log.Error().Err(res.Err).Int64("user", actorID).Stringer("action", res.Action).Msg("действие администратора не выполнено")
	}
	var markup any
	switch {
	case res.Done:
		markup = mainMenu(h.isAdmin(ctx, actorID))
	case res.Action == conversation.ActionBroadcastLocation:
		markup = locationKeyboard()
	case res.Step == 1:
		markup = tgbotapi.NewRemoveKeyboard(false)
	}
	h.reply(chatID, resultMessage(res), markup)
}

func (h *Handler) isAdmin(ctx context.Context, userID int64) bool {
	ok, err := h.adminsUC.IsAdmin(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("не удалось проверить права администратора")
		return false
	}
	return ok
}

func (h *Handler) reply(chatID int64, text string, markup any) {
	parts := telegram.SplitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == 0 && markup != nil {
			msg.ReplyMarkup = markup
		}
		start := time.Now()
		_, err := h.api.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			h.log.Error().Err(err).Msg("не удалось отправить сообщение")
			return
		}
	}
}

// commandOf выделяет имя команды: "/start@my_bot arg" -> "start".
func commandOf(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

// eventOf переводит сообщение в событие диалога.
func eventOf(msg *tgbotapi.Message) conversation.Event {
	switch {
	case msg.Location != nil:
		return conversation.Event{
			Kind:     conversation.EventLocation,
			Location: domain.Location{Latitude: msg.Location.Latitude, Longitude: msg.Location.Longitude},
		}
	case len(msg.Photo) > 0:
		// последний размер самый крупный
		return conversation.Event{Kind: conversation.EventPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID, Text: msg.Caption}
	case msg.Video != nil:
		return conversation.Event{Kind: conversation.EventVideo, FileID: msg.Video.FileID, Text: msg.Caption}
	case msg.Document != nil:
		return conversation.Event{Kind: conversation.EventDocument, FileID: msg.Document.FileID, Text: msg.Caption}
	default:
		return conversation.Event{Kind: conversation.EventText, Text: msg.Text}
	}
}

func displayName(u *tgbotapi.User) string {
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	if u.UserName != "" {
		return u.UserName
	}
	return "участник"
}
