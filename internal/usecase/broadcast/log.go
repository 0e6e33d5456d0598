package broadcast

import (
	"sync"

	"tg-checkin-bot/internal/domain"
)

// DeliveryLog хранит успешные доставки в порядке отправки. Живёт в памяти процесса.
type DeliveryLog struct {
	mu      sync.Mutex
	entries []domain.Delivery
}

// Append дописывает записи в конец журнала.
func (l *DeliveryLog) Append(entries ...domain.Delivery) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
}

// Len возвращает число записей.
func (l *DeliveryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Suffix возвращает копию последних n записей (или всех, если их меньше).
func (l *DeliveryLog) Suffix(n int) []domain.Delivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]domain.Delivery, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Remove удаляет перечисленные записи, сохраняя порядок остальных.
func (l *DeliveryLog) Remove(entries []domain.Delivery) {
	if len(entries) == 0 {
		return
	}
	drop := make(map[domain.Delivery]int, len(entries))
	for _, e := range entries {
		drop[e]++
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if drop[e] > 0 {
			drop[e]--
			continue
		}
		kept = append(kept, e)
	}
	clear(l.entries[len(kept):])
	l.entries = kept
}
