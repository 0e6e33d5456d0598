package domain

import "errors"

var (
	// ErrNotFound — запись отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrNotRegistered — участник ещё не прошёл /start.
	ErrNotRegistered = errors.New("участник не зарегистрирован")
	// ErrAlreadyCheckedIn — участник уже отметился сегодня.
	ErrAlreadyCheckedIn = errors.New("участие уже подтверждено сегодня")
	// ErrOutOfRange — точка вне радиуса мероприятия.
	ErrOutOfRange = errors.New("вне зоны мероприятия")
	// ErrInvalidLocation — координаты вне допустимого диапазона.
	ErrInvalidLocation = errors.New("некорректные координаты")
	// ErrFormat — ввод администратора не удалось разобрать.
	ErrFormat = errors.New("некорректный формат")
	// ErrPrimaryAdminProtected — главного администратора нельзя удалить.
	ErrPrimaryAdminProtected = errors.New("главного администратора нельзя удалить")
	// ErrForbidden — действие доступно только администраторам.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrPersistence — сбой хранилища при чтении или записи.
	ErrPersistence = errors.New("ошибка хранилища")
	// ErrDelivery — не удалось доставить сообщение получателю.
	ErrDelivery = errors.New("ошибка доставки")
	// ErrInsufficientPollOptions — в опросе меньше двух вариантов.
	ErrInsufficientPollOptions = errors.New("нужно минимум два варианта ответа")
	// ErrTooManyPollOptions — вариантов больше, чем разрешает Telegram.
	ErrTooManyPollOptions = errors.New("слишком много вариантов ответа")
	// ErrCacheMiss — ключ отсутствует в кэше.
	ErrCacheMiss = errors.New("cache miss")
)
