package conversation

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"tg-checkin-bot/internal/domain"
	"tg-checkin-bot/internal/infra/metrics"
)

const (
	minPollOptions = 2
	maxPollOptions = 10
)

// AdminRoster — права и список администраторов.
type AdminRoster interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	Add(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
}

// TargetSetter заменяет точку мероприятия.
type TargetSetter interface {
	Set(ctx context.Context, t domain.Target) error
}

// Broadcaster рассылает содержимое и отзывает последние доставки.
type Broadcaster interface {
	Broadcast(ctx context.Context, payload domain.Payload) (domain.DeliveryReport, error)
	RetractLast(ctx context.Context, n int) int
}

// Machine ведёт многошаговые диалоги администраторов.
// Вызовы для одного пользователя должны быть последовательными; это обеспечивает транспорт.
type Machine struct {
	store       *Store
	admins      AdminRoster
	target      TargetSetter
	broadcaster Broadcaster
	tokens      Tokens
	log         zerolog.Logger
}

// NewMachine создаёт машину состояний.
func NewMachine(store *Store, admins AdminRoster, target TargetSetter, broadcaster Broadcaster, tokens Tokens, log zerolog.Logger) *Machine {
	return &Machine{
		store:       store,
		admins:      admins,
		target:      target,
		broadcaster: broadcaster,
		tokens:      tokens,
		log:         log,
	}
}

// Begin начинает новый диалог, вытесняя незавершённый.
// Неизвестное действие отклоняется, не трогая текущий диалог.
func (m *Machine) Begin(ctx context.Context, actorID int64, action ActionKind) Result {
	if !action.Valid() {
		metrics.IncConversation(action.String(), OutcomeFormatError.String())
		return Result{Action: action, Outcome: OutcomeFormatError, Done: true, Err: domain.ErrFormat}
	}
	if res, ok := m.authorize(ctx, actorID, action); !ok {
		return res
	}
	if prev, ok := m.store.Get(actorID); ok {
		m.log.Debug().Int64("actor_id", actorID).Stringer("previous", prev.Action).Stringer("action", action).Msg("незавершённый диалог заменён")
	}
	m.store.Put(actorID, State{Action: action, Step: 1})
	return Result{Action: action, Step: 1, Outcome: OutcomeAwaitInput}
}

// Advance передаёт событие активному диалогу. Второе значение false,
// если диалога нет и событие нужно обработать как обычное.
func (m *Machine) Advance(ctx context.Context, actorID int64, ev Event) (Result, bool) {
	st, ok := m.store.Get(actorID)
	if !ok {
		return Result{}, false
	}
	if res, ok := m.authorize(ctx, actorID, st.Action); !ok {
		m.store.Delete(actorID)
		return res, true
	}

	var res Result
	switch st.Action {
	case ActionBroadcastText:
		res = m.broadcastText(ctx, &st, ev)
	case ActionBroadcastPhoto, ActionBroadcastVideo, ActionBroadcastFile:
		res = m.broadcastMedia(ctx, &st, ev)
	case ActionBroadcastLocation:
		res = m.broadcastLocation(ctx, ev)
	case ActionBroadcastPoll:
		res = m.broadcastPoll(ctx, &st, ev)
	case ActionSetTarget:
		res = m.setTarget(ctx, ev)
	case ActionAssignAdmin:
		res = m.assignAdmin(ctx, ev)
	case ActionRevokeAdmin:
		res = m.revokeAdmin(ctx, ev)
	case ActionClearRecentBroadcasts:
		res = m.clearRecent(ctx, &st, ev)
	default:
		res = Result{Outcome: OutcomeFailed, Done: true, Err: domain.ErrFormat}
	}
	res.Action = st.Action

	if res.Done {
		return m.finish(actorID, res), true
	}
	res.Step = st.Step
	m.store.Put(actorID, st)
	return res, true
}

// Cancel сбрасывает диалог пользователя.
func (m *Machine) Cancel(actorID int64) bool {
	st, ok := m.store.Get(actorID)
	if !ok {
		return false
	}
	m.store.Delete(actorID)
	metrics.IncConversation(st.Action.String(), OutcomeCancelled.String())
	return true
}

// Pending возвращает активный диалог пользователя.
func (m *Machine) Pending(actorID int64) (State, bool) {
	return m.store.Get(actorID)
}

func (m *Machine) authorize(ctx context.Context, actorID int64, action ActionKind) (Result, bool) {
	ok, err := m.admins.IsAdmin(ctx, actorID)
	if err != nil {
		return m.finish(actorID, Result{Action: action, Outcome: OutcomeFailed, Err: err}), false
	}
	if !ok {
		return m.finish(actorID, Result{Action: action, Outcome: OutcomeForbidden, Err: domain.ErrForbidden}), false
	}
	return Result{}, true
}

func (m *Machine) finish(actorID int64, res Result) Result {
	res.Done = true
	res.Step = 0
	m.store.Delete(actorID)
	metrics.IncConversation(res.Action.String(), res.Outcome.String())
	event := m.log.Info()
	if res.Err != nil && res.Outcome == OutcomeFailed {
		event = m.log.Error().Err(res.Err)
	}
	event.Int64("actor_id", actorID).Stringer("action", res.Action).Stringer("outcome", res.Outcome).Msg("диалог завершён")
	return res
}

func (m *Machine) broadcastText(ctx context.Context, st *State, ev Event) Result {
	switch st.Step {
	case 1:
		body, ok := textOf(ev)
		if !ok {
			return formatError()
		}
		st.Data.Text = body
		st.Step = 2
		return Result{Outcome: OutcomeAwaitInput, Text: body}
	default:
		if !m.confirmed(ev) {
			return Result{Outcome: OutcomeCancelled, Done: true}
		}
		return m.dispatch(ctx, domain.Payload{Kind: domain.PayloadText, Text: st.Data.Text})
	}
}

func (m *Machine) broadcastMedia(ctx context.Context, st *State, ev Event) Result {
	switch st.Step {
	case 1:
		switch {
		case ev.Kind == mediaEvent(st.Action) && ev.FileID != "":
			st.Data.Media = domain.MediaRef{FileID: ev.FileID}
		case ev.Kind == EventText && isHTTPURL(ev.Text):
			st.Data.Media = domain.MediaRef{URL: strings.TrimSpace(ev.Text)}
		default:
			return formatError()
		}
		st.Step = 2
		return Result{Outcome: OutcomeAwaitInput}
	default:
		if ev.Kind != EventText {
			return formatError()
		}
		caption := strings.TrimSpace(ev.Text)
		if m.tokens.IsSkip(caption) {
			caption = ""
		}
		return m.dispatch(ctx, domain.Payload{Kind: st.Action.payloadKind(), Media: st.Data.Media, Caption: caption})
	}
}

func (m *Machine) broadcastLocation(ctx context.Context, ev Event) Result {
	if ev.Kind != EventLocation || ev.Location.Validate() != nil {
		return formatError()
	}
	return m.dispatch(ctx, domain.Payload{Kind: domain.PayloadLocation, Location: ev.Location})
}

func (m *Machine) broadcastPoll(ctx context.Context, st *State, ev Event) Result {
	switch st.Step {
	case 1:
		question, ok := textOf(ev)
		if !ok {
			return formatError()
		}
		st.Data.Question = question
		st.Step = 2
		return Result{Outcome: OutcomeAwaitInput, Text: question}
	case 2:
		options := ParsePollOptions(ev.Text)
		if ev.Kind != EventText || len(options) < minPollOptions {
			return Result{Outcome: OutcomeInsufficientPollOptions, Err: domain.ErrInsufficientPollOptions}
		}
		if len(options) > maxPollOptions {
			return Result{Outcome: OutcomeTooManyPollOptions, Count: len(options), Err: domain.ErrTooManyPollOptions}
		}
		st.Data.Options = options
		st.Step = 3
		return Result{Outcome: OutcomeAwaitInput, Text: st.Data.Question, Options: options}
	default:
		if !m.confirmed(ev) {
			return Result{Outcome: OutcomeCancelled, Done: true}
		}
		return m.dispatch(ctx, domain.Payload{
			Kind: domain.PayloadPoll,
			Poll: domain.Poll{Question: st.Data.Question, Options: st.Data.Options},
		})
	}
}

func (m *Machine) setTarget(ctx context.Context, ev Event) Result {
	if ev.Kind != EventText {
		return formatError()
	}
	t, err := ParseTarget(ev.Text)
	if err != nil {
		return formatError()
	}
	if err := m.target.Set(ctx, t); err != nil {
		if errors.Is(err, domain.ErrFormat) {
			return formatError()
		}
		return Result{Outcome: OutcomeFailed, Done: true, Err: err}
	}
	return Result{Outcome: OutcomeTargetUpdated, Done: true, Target: t}
}

func (m *Machine) assignAdmin(ctx context.Context, ev Event) Result {
	id, ok := parseID(ev)
	if !ok {
		return formatError()
	}
	if err := m.admins.Add(ctx, id); err != nil {
		if errors.Is(err, domain.ErrFormat) {
			return formatError()
		}
		return Result{Outcome: OutcomeFailed, Done: true, AdminID: id, Err: err}
	}
	return Result{Outcome: OutcomeAdminAdded, Done: true, AdminID: id}
}

func (m *Machine) revokeAdmin(ctx context.Context, ev Event) Result {
	id, ok := parseID(ev)
	if !ok {
		return formatError()
	}
	err := m.admins.Remove(ctx, id)
	switch {
	case err == nil:
		return Result{Outcome: OutcomeAdminRemoved, Done: true, AdminID: id}
	case errors.Is(err, domain.ErrPrimaryAdminProtected):
		return Result{Outcome: OutcomePrimaryProtected, Done: true, AdminID: id, Err: err}
	case errors.Is(err, domain.ErrFormat):
		return formatError()
	default:
		return Result{Outcome: OutcomeFailed, Done: true, AdminID: id, Err: err}
	}
}

func (m *Machine) clearRecent(ctx context.Context, st *State, ev Event) Result {
	switch st.Step {
	case 1:
		if ev.Kind != EventText {
			return formatError()
		}
		n, err := strconv.Atoi(strings.TrimSpace(ev.Text))
		if err != nil || n <= 0 {
			return formatError()
		}
		st.Data.Count = n
		st.Step = 2
		return Result{Outcome: OutcomeAwaitInput, Requested: n}
	default:
		if !m.confirmed(ev) {
			return Result{Outcome: OutcomeCancelled, Done: true, Requested: st.Data.Count}
		}
		removed := m.broadcaster.RetractLast(ctx, st.Data.Count)
		return Result{Outcome: OutcomeRetracted, Done: true, Count: removed, Requested: st.Data.Count}
	}
}

func (m *Machine) dispatch(ctx context.Context, payload domain.Payload) Result {
	report, err := m.broadcaster.Broadcast(ctx, payload)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Done: true, Err: err}
	}
	return Result{Outcome: OutcomeBroadcastSent, Done: true, Report: report}
}

func (m *Machine) confirmed(ev Event) bool {
	return ev.Kind == EventText && m.tokens.IsConfirm(ev.Text)
}

func formatError() Result {
	return Result{Outcome: OutcomeFormatError, Done: true, Err: domain.ErrFormat}
}

func textOf(ev Event) (string, bool) {
	if ev.Kind != EventText {
		return "", false
	}
	s := strings.TrimSpace(ev.Text)
	return s, s != ""
}

func parseID(ev Event) (int64, bool) {
	if ev.Kind != EventText {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(ev.Text), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ParsePollOptions делит строку по «;» и отбрасывает пустые варианты.
func ParsePollOptions(s string) []string {
	parts := strings.Split(s, ";")
	options := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			options = append(options, p)
		}
	}
	return options
}

// ParseTarget разбирает строку «широта долгота радиус».
func ParseTarget(s string) (domain.Target, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) != 3 {
		return domain.Target{}, domain.ErrFormat
	}
	var values [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return domain.Target{}, domain.ErrFormat
		}
		values[i] = v
	}
	t := domain.Target{
		Location:     domain.Location{Latitude: values[0], Longitude: values[1]},
		RadiusMeters: values[2],
	}
	if err := t.Validate(); err != nil {
		return domain.Target{}, err
	}
	return t, nil
}
