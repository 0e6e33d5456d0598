package conversation

import (
	"sync"
	"time"

	"tg-checkin-bot/internal/domain"
)

// Data накапливает ввод между шагами.
type Data struct {
	Text     string
	Media    domain.MediaRef
	Question string
	Options  []string
	Count    int
}

// State — незавершённый диалог одного администратора.
type State struct {
	Action    ActionKind
	Step      int
	Data      Data
	UpdatedAt time.Time
}

// Store хранит не более одного диалога на пользователя.
// Просроченные диалоги удаляются при обращении.
type Store struct {
	mu     sync.Mutex
	states map[int64]State
	ttl    time.Duration
	now    func() time.Time
}

// NewStore создаёт хранилище. ttl <= 0 отключает истечение.
func NewStore(ttl time.Duration) *Store {
	return &Store{states: make(map[int64]State), ttl: ttl, now: time.Now}
}

// Get возвращает активный диалог пользователя.
func (s *Store) Get(actorID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[actorID]
	if !ok {
		return State{}, false
	}
	if s.ttl > 0 && s.now().Sub(st.UpdatedAt) > s.ttl {
		delete(s.states, actorID)
		return State{}, false
	}
	return st, true
}

// Put заменяет диалог пользователя.
func (s *Store) Put(actorID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.UpdatedAt = s.now()
	s.states[actorID] = st
}

// Delete удаляет диалог и сообщает, был ли он.
func (s *Store) Delete(actorID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.states[actorID]
	delete(s.states, actorID)
	return ok
}

// Len возвращает число хранимых диалогов, включая ещё не вычищенные просроченные.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
