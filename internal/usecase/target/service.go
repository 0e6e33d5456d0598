package target

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"tg-checkin-bot/internal/domain"
)

const cacheKey = "event_target"

// Service хранит текущую точку мероприятия. Чтение без блокировок,
// замена атомарна: читатель видит либо старое, либо новое значение целиком.
// mu упорядочивает пары «запись в кэш + замена», чтобы память и кэш не расходились.
type Service struct {
	mu      sync.Mutex
	current atomic.Pointer[domain.Target]
	cache   domain.Cache
	log     zerolog.Logger
}

// NewService создаёт сервис с начальной точкой из конфига. cache может быть nil,
// тогда точка живёт только в памяти процесса.
func NewService(initial domain.Target, cache domain.Cache, log zerolog.Logger) (*Service, error) {
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("начальная точка: %w", err)
	}
	s := &Service{cache: cache, log: log}
	s.current.Store(&initial)
	return s, nil
}

// Load подтягивает сохранённую ранее точку, если она есть.
func (s *Service) Load(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.cache.Get(ctx, cacheKey)
	if errors.Is(err, domain.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: чтение точки: %w", domain.ErrPersistence, err)
	}
	var stored domain.Target
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("decode target: %w", err)
	}
	if err := stored.Validate(); err != nil {
		s.log.Warn().Err(err).Msg("сохранённая точка некорректна, используем точку из конфига")
		return nil
	}
	s.current.Store(&stored)
	s.log.Info().Float64("lat", stored.Latitude).Float64("lon", stored.Longitude).Float64("radius", stored.RadiusMeters).Msg("точка мероприятия восстановлена")
	return nil
}

// Current возвращает текущую точку.
func (s *Service) Current() domain.Target {
	return *s.current.Load()
}

// Set проверяет и сохраняет новую точку. При ошибке записи точка не меняется.
func (s *Service) Set(ctx context.Context, t domain.Target) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFormat, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode target: %w", err)
		}
		if err := s.cache.Set(ctx, cacheKey, raw, 0); err != nil {
			return fmt.Errorf("%w: запись точки: %w", domain.ErrPersistence, err)
		}
	}
	s.current.Store(&t)
	s.log.Info().Float64("lat", t.Latitude).Float64("lon", t.Longitude).Float64("radius", t.RadiusMeters).Msg("точка мероприятия обновлена")
	return nil
}
