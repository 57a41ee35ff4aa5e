// Package bus реализует шину активности аккаунта: канал публикации и
// подписки, через который компоненты узнают, что квоту пора перечитать.
//
// Шина переносит только лёгкие теги событий, без полезной нагрузки и без
// истории: подписчик получает события, опубликованные после подписки.
// Гарантируется доставка как минимум один раз, порядок не гарантируется.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
)

// ChannelName — общее имя канала для всех публикаторов и подписчиков
// одного развертывания.
const ChannelName = "crewdog:activity"

// Event — тег события на шине активности.
type Event string

const (
	// EventSearchUsed — выполнен поиск, счетчик квоты изменился.
	EventSearchUsed Event = "search_used"
	// EventQuotaChanged — тариф или квота изменились (биллинг, апгрейд).
	EventQuotaChanged Event = "quota_changed"
)

// Known сообщает, распознан ли тег события. Нераспознанные теги
// игнорируются, а не считаются ошибкой.
func Known(e Event) bool {
	switch e {
	case EventSearchUsed, EventQuotaChanged:
		return true
	}
	return false
}

// Bus — порт шины активности. Реализации: внутрипроцессный хаб,
// Redis pub/sub и RabbitMQ fanout для межпроцессной доставки.
type Bus interface {
	// Publish отправляет событие всем активным подписчикам.
	Publish(ctx context.Context, event Event) error
	// Subscribe возвращает канал событий и функцию отписки.
	// Отписка обязательна при завершении потребителя.
	Subscribe(ctx context.Context) (<-chan Event, func())
	// Close останавливает шину и закрывает всех подписчиков.
	Close() error
}

// message — формат сообщения на проводе: {"type": "..."}.
// Дополнительные поля допускаются и игнорируются.
type message struct {
	Type string `json:"type"`
}

func encodeMessage(e Event) ([]byte, error) {
	const op = "bus.encodeMessage"
	body, err := json.Marshal(message{Type: string(e)})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return body, nil
}

// decodeMessage разбирает сообщение с провода. Второй результат false
// означает, что сообщение не распознано и должно быть пропущено.
func decodeMessage(body []byte) (Event, bool) {
	var msg message
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", false
	}
	e := Event(msg.Type)
	return e, Known(e)
}

// Nop — заглушка шины на случай недоступности брокера: публикация и
// подписка становятся безопасными пустыми операциями.
type Nop struct{}

// Publish ничего не делает.
func (Nop) Publish(context.Context, Event) error { return nil }

// Subscribe возвращает канал, в который никогда ничего не придет.
func (Nop) Subscribe(ctx context.Context) (<-chan Event, func()) {
	ch := make(chan Event)
	return ch, func() {}
}

// Close ничего не делает.
func (Nop) Close() error { return nil }
