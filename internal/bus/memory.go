package bus

import (
	"context"
	"sync"
)

// subscriberBuffer — размер буфера канала подписчика. Медленный подписчик
// теряет события вместо того, чтобы блокировать публикатора: пропущенное
// событие приводит лишь к лишнему перечитыванию квоты позже.
const subscriberBuffer = 8

// Memory — внутрипроцессная реализация шины для одного процесса
// (один запущенный клиент без внешнего брокера).
type Memory struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewMemory создает внутрипроцессную шину.
func NewMemory() *Memory {
	return &Memory{subs: make(map[int]chan Event)}
}

// Publish рассылает событие всем подписчикам. Переполненный буфер
// подписчика приводит к потере события у него одного.
func (m *Memory) Publish(_ context.Context, event Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil
	}
	for _, ch := range m.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe регистрирует подписчика. Возвращенная функция отписки
// идемпотентна; отмена контекста также снимает подписку.
func (m *Memory) Subscribe(ctx context.Context) (<-chan Event, func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	ch := make(chan Event, subscriberBuffer)
	if m.closed {
		close(ch)
		m.mu.Unlock()
		return ch, func() {}
	}
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			if _, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(ch)
			}
			m.mu.Unlock()
		})
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return ch, cancel
}

// Close закрывает шину и каналы всех подписчиков.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	return nil
}
