package admins

import (
	"context"
	"fmt"
	"sort"

	"tg-checkin-bot/internal/domain"
)

// Service управляет списком администраторов. Главный администратор
// всегда считается администратором и не может быть удалён.
type Service struct {
	repo    domain.AdminRepo
	primary int64
}

// NewService создаёт сервис.
func NewService(repo domain.AdminRepo, primary int64) *Service {
	return &Service{repo: repo, primary: primary}
}

// Primary возвращает идентификатор главного администратора.
func (s *Service) Primary() int64 {
	return s.primary
}

// EnsurePrimary записывает главного администратора в хранилище при старте.
func (s *Service) EnsurePrimary(ctx context.Context) error {
	if err := s.repo.AddAdmin(ctx, s.primary); err != nil {
		return fmt.Errorf("%w: добавление главного администратора: %w", domain.ErrPersistence, err)
	}
	return nil
}

// IsAdmin проверяет права пользователя.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if userID == s.primary {
		return true, nil
	}
	ok, err := s.repo.IsAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: проверка администратора: %w", domain.ErrPersistence, err)
	}
	return ok, nil
}

// Add назначает администратора.
func (s *Service) Add(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return domain.ErrFormat
	}
	if err := s.repo.AddAdmin(ctx, userID); err != nil {
		return fmt.Errorf("%w: добавление администратора: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Remove снимает права администратора. Главного администратора удалить нельзя.
func (s *Service) Remove(ctx context.Context, userID int64) error {
	if userID == s.primary {
		return domain.ErrPrimaryAdminProtected
	}
	if userID <= 0 {
		return domain.ErrFormat
	}
	if err := s.repo.RemoveAdmin(ctx, userID); err != nil {
		return fmt.Errorf("%w: удаление администратора: %w", domain.ErrPersistence, err)
	}
	return nil
}

// List возвращает администраторов по возрастанию ID; главный присутствует всегда.
func (s *Service) List(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: список администраторов: %w", domain.ErrPersistence, err)
	}
	found := false
	for _, id := range ids {
		if id == s.primary {
			found = true
			break
		}
	}
	if !found {
		ids = append(ids, s.primary)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
