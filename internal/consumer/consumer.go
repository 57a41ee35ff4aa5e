// Package consumer реализует паттерн независимого потребителя состояния
// аккаунта: один немедленный запрос при старте, подписка на шину активности
// с перезапросом после дебаунса и немедленный перезапрос при пробуждении.
//
// Потребители не делят изменяемое состояние: каждый держит собственную
// копию сводки, полученную собственным запросом. Небольшой дубль сетевого
// трафика — осознанная плата за строгую независимость.
package consumer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crewdoghq/crewdog-client/internal/bus"
	"github.com/crewdoghq/crewdog-client/internal/models"
)

// DefaultDebounce — пауза между событием шины и перезапросом сводки.
// Дает исходной мутации время устаканиться на сервере до обратного чтения.
const DefaultDebounce = 400 * time.Millisecond

// FetchFunc возвращает свежую нормализованную сводку. Ошибок не бывает:
// сервис аккаунта деградирует до гостевой сводки сам.
type FetchFunc func(ctx context.Context) models.NormalizedSummary

// Consumer — один независимый потребитель состояния аккаунта.
type Consumer struct {
	name     string
	fetch    FetchFunc
	activity bus.Bus
	debounce time.Duration
	log      *slog.Logger

	mu       sync.RWMutex
	current  models.NormalizedSummary
	onUpdate func(models.NormalizedSummary)

	wake chan struct{}
}

// New создает потребителя. Неположительный debounce заменяется на
// DefaultDebounce.
func New(name string, fetch FetchFunc, activity bus.Bus, debounce time.Duration, log *slog.Logger) *Consumer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Consumer{
		name:     name,
		fetch:    fetch,
		activity: activity,
		debounce: debounce,
		log:      log,
		wake:     make(chan struct{}, 1),
	}
}

// OnUpdate регистрирует колбэк, вызываемый после каждого обновления сводки.
// Вызывать до Run.
func (c *Consumer) OnUpdate(fn func(models.NormalizedSummary)) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

// Summary возвращает локальную копию сводки потребителя.
func (c *Consumer) Summary() models.NormalizedSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Wake запрашивает немедленный перезапрос — аналог возвращения вкладки
// в видимое состояние. Повторные вызовы до обработки схлопываются.
func (c *Consumer) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run выполняет начальный запрос и крутит цикл потребителя до отмены
// контекста. Подписка на шину снимается при выходе.
func (c *Consumer) Run(ctx context.Context) error {
	c.refetch(ctx)

	events, unsubscribe := c.activity.Subscribe(ctx)
	defer unsubscribe()

	c.log.Debug("consumer started", slog.String("consumer", c.name))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				// Шина закрылась, но пробуждения продолжают обслуживаться.
				events = nil
				continue
			}
			if !bus.Known(ev) {
				continue
			}
			c.log.Debug("activity event received",
				slog.String("consumer", c.name), slog.String("event", string(ev)))
			c.scheduleRefetch(ctx)
		case <-c.wake:
			c.refetch(ctx)
		}
	}
}

// scheduleRefetch перечитывает сводку после дебаунса. Каждое событие
// порождает свой перезапрос: дублирующиеся чтения идемпотентны и дешевле
// пропущенного обновления.
func (c *Consumer) scheduleRefetch(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(c.debounce):
			c.refetch(ctx)
		}
	}()
}

func (c *Consumer) refetch(ctx context.Context) {
	summary := c.fetch(ctx)

	c.mu.Lock()
	c.current = summary
	fn := c.onUpdate
	c.mu.Unlock()

	if fn != nil {
		fn(summary)
	}
}
