package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-checkin-bot/internal/adapters/telegram"
	"tg-checkin-bot/internal/domain"
	"tg-checkin-bot/internal/usecase/admins"
	"tg-checkin-bot/internal/usecase/broadcast"
	"tg-checkin-bot/internal/usecase/checkin"
	"tg-checkin-bot/internal/usecase/conversation"
	"tg-checkin-bot/internal/usecase/target"
)

const (
	primaryID = int64(1)
	userA     = int64(10)
	userB     = int64(11)
)

type memStore struct {
	mu           sync.Mutex
	participants map[int64]domain.Participant
	admins       map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{participants: make(map[int64]domain.Participant), admins: make(map[int64]bool)}
}

func (s *memStore) GetParticipant(_ context.Context, id int64) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *memStore) UpsertParticipant(_ context.Context, id int64, name string) (domain.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		p = domain.Participant{UserID: id}
	}
	if name != "" {
		p.Name = name
	}
	s.participants[id] = p
	return p, !ok, nil
}

func (s *memStore) UpdatePoints(_ context.Context, id int64, points int, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Points = points
	p.LastCheckin = &day
	s.participants[id] = p
	return nil
}

func (s *memStore) ListParticipantIDs(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.participants))
	for id := range s.participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) IsAdmin(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admins[id], nil
}

func (s *memStore) AddAdmin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[id] = true
	return nil
}

func (s *memStore) RemoveAdmin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.admins, id)
	return nil
}

func (s *memStore) ListAdmins(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id := range s.admins {
		ids = append(ids, id)
	}
	return ids, nil
}

type sent struct {
	chatID int64
	text   string
	markup any
	kind   string
}

type fakeAPI struct {
	mu     sync.Mutex
	out    []sent
	nextID int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		f.out = append(f.out, sent{chatID: m.ChatID, text: m.Text, markup: m.ReplyMarkup, kind: "text"})
	case tgbotapi.LocationConfig:
		f.out = append(f.out, sent{chatID: m.ChatID, kind: "location"})
	default:
		f.out = append(f.out, sent{kind: "other"})
	}
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) to(chatID int64) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.out {
		if s.chatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeAPI) last(t *testing.T, chatID int64) sent {
	t.Helper()
	msgs := f.to(chatID)
	if len(msgs) == 0 {
		t.Fatalf("no messages to %d", chatID)
	}
	return msgs[len(msgs)-1]
}

type onceCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (c *onceCache) Once(_ context.Context, key string, _ time.Duration, fn func() error) error {
	c.mu.Lock()
	if c.seen[key] {
		c.mu.Unlock()
		return nil
	}
	c.seen[key] = true
	c.mu.Unlock()
	return fn()
}

func (c *onceCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (c *onceCache) Get(context.Context, string) ([]byte, error) { return nil, domain.ErrCacheMiss }

var eventPoint = domain.Target{Location: domain.Location{Latitude: 41.356015, Longitude: 69.314663}, RadiusMeters: 150}

type env struct {
	h     *Handler
	api   *fakeAPI
	store *memStore
	seq   int
}

func newEnv(t *testing.T, cache domain.Cache) *env {
	t.Helper()
	log := zerolog.Nop()
	store := newMemStore()
	api := &fakeAPI{}
	adminsUC := admins.NewService(store, primaryID)
	targetUC, err := target.NewService(eventPoint, nil, log)
	if err != nil {
		t.Fatalf("target: %v", err)
	}
	checkinUC := checkin.NewService(store, targetUC, 20)
	dispatcher := broadcast.NewDispatcher(store, telegram.NewMessenger(api), 2, log)
	tokens := conversation.NewTokens("ru", []string{"да", "yes"}, []string{"нет", "no"})
	machine := conversation.NewMachine(conversation.NewStore(time.Hour), adminsUC, targetUC, dispatcher, tokens, log)
	h := NewHandler(api, log, checkinUC, adminsUC, machine, cache, time.UTC)
	h.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }
	return &env{h: h, api: api, store: store}
}

func (e *env) message(from int64, text string) tgbotapi.Update {
	e.seq++
	return tgbotapi.Update{
		UpdateID: e.seq,
		Message: &tgbotapi.Message{
			MessageID: e.seq,
			From:      &tgbotapi.User{ID: from, FirstName: "Айбек"},
			Chat:      &tgbotapi.Chat{ID: from},
			Text:      text,
		},
	}
}

func (e *env) location(from int64, loc domain.Location) tgbotapi.Update {
	upd := e.message(from, "")
	upd.Message.Location = &tgbotapi.Location{Latitude: loc.Latitude, Longitude: loc.Longitude}
	return upd
}

func (e *env) send(upd tgbotapi.Update) {
	e.h.HandleUpdate(context.Background(), upd)
}

func TestStartRegistersAndShowsMenu(t *testing.T) {
	e := newEnv(t, nil)
	e.send(e.message(userA, "/start"))
	reply := e.api.last(t, userA)
	if !strings.Contains(reply.text, "Привет, Айбек!") || !strings.Contains(reply.text, "20 баллов") {
		t.Fatalf("unexpected greeting: %q", reply.text)
	}
	menu, ok := reply.markup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok || len(menu.Keyboard) != 1 {
		t.Fatalf("participant must get the short menu, got %#v", reply.markup)
	}
	if _, err := e.store.GetParticipant(context.Background(), userA); err != nil {
		t.Fatalf("participant not stored: %v", err)
	}

	e.send(e.message(primaryID, "/start@checkin_bot"))
	menu, ok = e.api.last(t, primaryID).markup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok || len(menu.Keyboard) != 6 {
		t.Fatalf("admin must get the full menu, got %#v", menu)
	}
}

func TestCheckinButtonAsksForLocation(t *testing.T) {
	e := newEnv(t, nil)
	e.send(e.message(userA, labelCheckin))
	reply := e.api.last(t, userA)
	kb, ok := reply.markup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok || !kb.Keyboard[0][0].RequestLocation {
		t.Fatalf("expected location request keyboard, got %#v", reply.markup)
	}
}

func TestLocationCheckin(t *testing.T) {
	e := newEnv(t, nil)
	e.send(e.location(userA, eventPoint.Location))
	if got := e.api.last(t, userA).text; got != "Сначала напиши /start для регистрации." {
		t.Fatalf("unexpected reply: %q", got)
	}

	e.send(e.message(userA, "/start"))
	e.send(e.location(userA, eventPoint.Location))
	if got := e.api.last(t, userA).text; !strings.Contains(got, "+20") {
		t.Fatalf("expected award, got %q", got)
	}
	e.send(e.location(userA, eventPoint.Location))
	if got := e.api.last(t, userA).text; !strings.Contains(got, "уже подтвердил") {
		t.Fatalf("expected already checked in, got %q", got)
	}
	e.send(e.message(userA, labelScore))
	if got := e.api.last(t, userA).text; got != "У тебя 20 баллов 🟢" {
		t.Fatalf("unexpected score: %q", got)
	}

	e.send(e.message(userB, "/start"))
	e.send(e.location(userB, domain.Location{Latitude: 41.4, Longitude: 69.4}))
	if got := e.api.last(t, userB).text; !strings.Contains(got, "вне зоны") {
		t.Fatalf("expected out of range, got %q", got)
	}
}

func TestAdminTextBroadcast(t *testing.T) {
	e := newEnv(t, nil)
	e.send(e.message(userA, "/start"))
	e.send(e.message(userB, "/start"))

	e.send(e.message(primaryID, labelBroadcastText))
	if got := e.api.last(t, primaryID).text; got != "Введите текст для рассылки всем пользователям:" {
		t.Fatalf("unexpected prompt: %q", got)
	}
	e.send(e.message(primaryID, "Сбор у входа в 10:00"))
	if got := e.api.last(t, primaryID).text; !strings.Contains(got, "Сбор у входа в 10:00") {
		t.Fatalf("expected confirmation with body, got %q", got)
	}
	e.send(e.message(primaryID, "Да"))
	if got := e.api.last(t, primaryID).text; got != "✅ Рассылка завершена. Отправлено: 2" {
		t.Fatalf("unexpected summary: %q", got)
	}
	for _, id := range []int64{userA, userB} {
		if got := e.api.last(t, id).text; got != "Сбор у входа в 10:00" {
			t.Fatalf("participant %d got %q", id, got)
		}
	}
}

func TestPendingLocationFlowTakesPriorityOverCheckin(t *testing.T) {
	e := newEnv(t, nil)
	e.send(e.message(userA, "/start"))
	e.send(e.message(primaryID, "/start"))
	e.send(e.message(primaryID, labelBroadcastLocation))
	e.send(e.location(primaryID, eventPoint.Location))

	if got := e.api.last(t, primaryID).text; !strings.HasPrefix(got, "✅ Рассылка завершена") {
		t.Fatalf("location must go to the pending broadcast, got %q", got)
	}
	if e.api.last(t, userA).kind != "location" {
		t.Fatal("participant must receive the location")
	}
	p, _ := e.store.GetParticipant(context.Background(), primaryID)
	if p.Points != 0 {
		t.Fatal("admin must not be awarded while broadcasting a location")
	}
}

func TestParticipantCannotStartAdminActions(t *testing.T) {
	e := newEnv(t, nil)
	e.send(e.message(userA, labelSetTarget))
	if got := e.api.last(t, userA).text; got != textNoRights {
		t.Fatalf("expected no rights, got %q", got)
	}
	e.send(e.message(userA, "/admins"))
	if got := e.api.last(t, userA).text; got != textNoRights {
		t.Fatalf("expected no rights, got %q", got)
	}
}

func TestAssignAdminAndList(t *testing.T) {
	e := newEnv(t, nil)
	e.send(e.message(primaryID, labelAssignAdmin))
	e.send(e.message(primaryID, "42"))
	if got := e.api.last(t, primaryID).text; got != "✅ Пользователь 42 назначен администратором." {
		t.Fatalf("unexpected: %q", got)
	}
	e.send(e.message(primaryID, "/admins"))
	got := e.api.last(t, primaryID).text
	if !strings.Contains(got, "1 (главный)") || !strings.Contains(got, "42") {
		t.Fatalf("unexpected admin list: %q", got)
	}
}

func TestCancelCommand(t *testing.T) {
	e := newEnv(t, nil)
	e.send(e.message(primaryID, "/cancel"))
	if got := e.api.last(t, primaryID).text; got != textNothingToEnd {
		t.Fatalf("unexpected: %q", got)
	}
	e.send(e.message(primaryID, labelBroadcastPoll))
	e.send(e.message(primaryID, "/cancel"))
	if got := e.api.last(t, primaryID).text; got != textCancelled {
		t.Fatalf("unexpected: %q", got)
	}
	e.send(e.message(primaryID, "вопрос?"))
	if got := e.api.last(t, primaryID).text; got != textUnknown {
		t.Fatalf("text after cancel must not continue the poll, got %q", got)
	}
}

func TestDuplicateUpdateIsSkipped(t *testing.T) {
	e := newEnv(t, &onceCache{seen: make(map[string]bool)})
	upd := e.message(userA, "/help")
	e.send(upd)
	e.send(upd)
	if n := len(e.api.to(userA)); n != 1 {
		t.Fatalf("expected one reply, got %d", n)
	}
}

func TestEveryActionHasALabel(t *testing.T) {
	seen := make(map[conversation.ActionKind]bool)
	for _, action := range actionLabels {
		seen[action] = true
	}
	for a := conversation.ActionBroadcastText; a <= conversation.ActionClearRecentBroadcasts; a++ {
		if !seen[a] {
			t.Fatalf("action %s has no menu label", a)
		}
	}
	if _, ok := ActionForLabel(labelCheckin); ok {
		t.Fatal("check-in button is not an admin action")
	}
}

func TestCommandOf(t *testing.T) {
	cases := map[string]string{
		"/start":            "start",
		"/Score@my_bot":     "score",
		"/cancel please":    "cancel",
		"/":                 "",
		"/admins@bot extra": "admins",
	}
	for in, want := range cases {
		if got := commandOf(in); got != want {
			t.Fatalf("commandOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(7)
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50, got %d", counter)
	}
	if k.size() != 0 {
		t.Fatalf("entries must be released, got %d", k.size())
	}
}

func TestWebhookRejectsBadJSON(t *testing.T) {
	e := newEnv(t, nil)
	queue := make(chan tgbotapi.Update, 1)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bot/webhook", strings.NewReader("{"))
	e.h.WebhookHandler(queue).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(queue) != 0 {
		t.Fatal("bad update must not be queued")
	}
}

func TestWebhookAcksBeforeProcessing(t *testing.T) {
	e := newEnv(t, nil)
	queue := make(chan tgbotapi.Update, 1)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bot/webhook", strings.NewReader(`{"update_id":5,"message":{"message_id":1,"from":{"id":10,"first_name":"A"},"chat":{"id":10},"text":"/help"}}`))
	e.h.WebhookHandler(queue).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(e.api.to(userA)) != 0 {
		t.Fatal("update must be processed after the response")
	}

	close(queue)
	e.h.Run(context.Background(), queue, 2)
	if len(e.api.to(userA)) != 1 {
		t.Fatal("expected a reply to /help")
	}
}

func TestWebhookFullQueue(t *testing.T) {
	e := newEnv(t, nil)
	queue := make(chan tgbotapi.Update)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bot/webhook", strings.NewReader(`{"update_id":6}`)).WithContext(ctx)
	e.h.WebhookHandler(queue).ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 so Telegram retries, got %d", rec.Code)
	}
}

func TestRunKeepsPerActorOrder(t *testing.T) {
	e := newEnv(t, nil)
	updates := make(chan tgbotapi.Update, 8)
	updates <- e.message(primaryID, labelAssignAdmin)
	updates <- e.message(primaryID, "77")
	updates <- e.message(userA, "/start")
	updates <- e.message(primaryID, "/admins")
	close(updates)

	e.h.Run(context.Background(), updates, 3)

	if got := e.api.last(t, primaryID).text; !strings.Contains(got, "77") {
		t.Fatalf("admin list must include the new admin, got %q", got)
	}
	if len(e.api.to(userA)) != 1 {
		t.Fatal("participant must be greeted")
	}
}
