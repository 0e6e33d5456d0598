package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tg-checkin-bot/internal/domain"
	"tg-checkin-bot/internal/infra/metrics"
)

// DefaultAward — баллы за одну отметку.
const DefaultAward = 20

// Outcome — исход попытки подтвердить участие.
type Outcome int

const (
	Unregistered Outcome = iota
	AlreadyCheckedInToday
	Awarded
	OutOfRange
)

func (o Outcome) String() string {
	switch o {
	case Unregistered:
		return "unregistered"
	case AlreadyCheckedInToday:
		return "already_checked_in"
	case Awarded:
		return "awarded"
	case OutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Result описывает решение по отметке.
type Result struct {
	Outcome  Outcome
	NewTotal int
	Distance float64
}

// Err возвращает причину отказа в начислении или nil.
func (r Result) Err() error {
	switch r.Outcome {
	case Unregistered:
		return domain.ErrNotRegistered
	case AlreadyCheckedInToday:
		return domain.ErrAlreadyCheckedIn
	case OutOfRange:
		return domain.ErrOutOfRange
	default:
		return nil
	}
}

// TargetReader отдаёт текущую точку мероприятия.
type TargetReader interface {
	Current() domain.Target
}

// Service принимает геолокацию участников и начисляет баллы.
type Service struct {
	repo   domain.ParticipantRepo
	target TargetReader
	award  int
}

// NewService создаёт сервис. award <= 0 заменяется на DefaultAward.
func NewService(repo domain.ParticipantRepo, target TargetReader, award int) *Service {
	if award <= 0 {
		award = DefaultAward
	}
	return &Service{repo: repo, target: target, award: award}
}

// Award возвращает размер начисления.
func (s *Service) Award() int {
	return s.award
}

// Register создаёт участника или обновляет его имя.
func (s *Service) Register(ctx context.Context, userID int64, name string) (domain.Participant, bool, error) {
	participant, created, err := s.repo.UpsertParticipant(ctx, userID, strings.TrimSpace(name))
	if err != nil {
		return domain.Participant{}, false, fmt.Errorf("%w: регистрация: %w", domain.ErrPersistence, err)
	}
	return participant, created, nil
}

// Score возвращает баллы участника.
func (s *Service) Score(ctx context.Context, userID int64) (int, error) {
	participant, err := s.repo.GetParticipant(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, domain.ErrNotRegistered
	}
	if err != nil {
		return 0, fmt.Errorf("%w: получение участника: %w", domain.ErrPersistence, err)
	}
	return participant.Points, nil
}

// Evaluate решает, начислять ли баллы за присланную точку.
// today должен быть вычислен в часовом поясе мероприятия.
// Сбои хранилища возвращаются ошибкой с domain.ErrPersistence и никогда не маскируются под OutOfRange.
func (s *Service) Evaluate(ctx context.Context, userID int64, loc domain.Location, today time.Time) (Result, error) {
	if err := loc.Validate(); err != nil {
		return Result{}, err
	}
	participant, err := s.repo.GetParticipant(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncCheckin(Unregistered.String())
		return Result{Outcome: Unregistered}, nil
	}
	if err != nil {
		metrics.IncCheckin("error")
		return Result{}, fmt.Errorf("%w: получение участника: %w", domain.ErrPersistence, err)
	}
	if participant.CheckedInOn(today) {
		metrics.IncCheckin(AlreadyCheckedInToday.String())
		return Result{Outcome: AlreadyCheckedInToday, NewTotal: participant.Points}, nil
	}

	target := s.target.Current()
	distance := domain.Distance(loc, target.Location)
	if distance > target.RadiusMeters {
		metrics.IncCheckin(OutOfRange.String())
		return Result{Outcome: OutOfRange, NewTotal: participant.Points, Distance: distance}, nil
	}

	total := participant.Points + s.award
	if err := s.repo.UpdatePoints(ctx, userID, total, domain.DateOf(today)); err != nil {
		metrics.IncCheckin("error")
		return Result{}, fmt.Errorf("%w: начисление баллов: %w", domain.ErrPersistence, err)
	}
	metrics.IncCheckin(Awarded.String())
	return Result{Outcome: Awarded, NewTotal: total, Distance: distance}, nil
}
