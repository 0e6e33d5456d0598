package domain

import "time"

// Participant описывает зарегистрированного участника мероприятия.
type Participant struct {
	UserID      int64
	Name        string
	Points      int
	LastCheckin *time.Time
	CreatedAt   time.Time
}

// CheckedInOn сообщает, отмечался ли участник в указанный день.
func (p Participant) CheckedInOn(day time.Time) bool {
	if p.LastCheckin == nil {
		return false
	}
	return DateOf(*p.LastCheckin).Equal(DateOf(day))
}

// DateOf отбрасывает время суток и возвращает календарную дату в UTC.
// Дата берётся из локации самого значения, поэтому today нужно считать в часовом поясе мероприятия.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Delivery — одно успешно доставленное сообщение рассылки.
type Delivery struct {
	RecipientID int64
	MessageID   int
}

// DeliveryReport подводит итог рассылки.
type DeliveryReport struct {
	ID        string
	Attempted int
	Succeeded int
	FailedIDs []int64
}

// Failed возвращает количество неудачных доставок.
func (r DeliveryReport) Failed() int {
	return len(r.FailedIDs)
}
