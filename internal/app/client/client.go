// Package client собирает клиентский демон: шина активности, адаптер
// провайдера идентификации, сервис аккаунта, биллинг, поиск и потребители
// состояния квоты.
package client

import (
	"context"
	"log/slog"

	"github.com/crewdoghq/crewdog-client/internal/auth"
	"github.com/crewdoghq/crewdog-client/internal/billing"
	"github.com/crewdoghq/crewdog-client/internal/bus"
	"github.com/crewdoghq/crewdog-client/internal/config"
	"github.com/crewdoghq/crewdog-client/internal/consumer"
	"github.com/crewdoghq/crewdog-client/internal/lib/sl"
	"github.com/crewdoghq/crewdog-client/internal/models"
	"github.com/crewdoghq/crewdog-client/internal/search"
	"github.com/crewdoghq/crewdog-client/internal/services/account"
)

// App — клиентский демон со всеми зависимостями.
type App struct {
	logger    *slog.Logger
	activity  bus.Bus
	provider  auth.Provider
	account   *account.Service
	Billing   *billing.Client
	Search    *search.Client
	consumers []*consumer.Consumer
}

// New собирает демона по конфигурации. Недоступный брокер шины не считается
// фатальным: шина деградирует до заглушки, потребители обновляются только
// по пробуждению.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	activity := newBus(ctx, cfg, logger)

	provider := auth.NewHTTPProvider(cfg.Identity.URL, cfg.Identity.APIKey, logger)
	accountService := account.New(cfg.AccountAPIURL, logger)
	billingClient := billing.New(cfg.BillingAPIURL, activity, logger)
	searchClient := search.New(cfg.SearchWebhookURL, newConsumeBinding(provider, accountService), activity, logger)

	fetch := func(ctx context.Context) models.NormalizedSummary {
		sess, err := provider.Session(ctx)
		if err != nil || sess == nil {
			return account.GuestSummary()
		}
		return accountService.FetchSummary(ctx, sess.User.ID, sess.AccessToken)
	}

	// Каждый потребитель держит собственную копию сводки и делает
	// собственные запросы: разменяли лишний трафик на отсутствие общего
	// изменяемого состояния.
	consumers := []*consumer.Consumer{
		consumer.New("quota-badge", fetch, activity, cfg.Debounce, logger),
		consumer.New("subscription-card", fetch, activity, cfg.Debounce, logger),
		consumer.New("search-history", fetch, activity, cfg.Debounce, logger),
	}

	return &App{
		logger:    logger,
		activity:  activity,
		provider:  provider,
		account:   accountService,
		Billing:   billingClient,
		Search:    searchClient,
		consumers: consumers,
	}, nil
}

// newBus выбирает реализацию шины активности по конфигурации.
func newBus(ctx context.Context, cfg *config.Config, logger *slog.Logger) bus.Bus {
	switch cfg.Backend {
	case "redis":
		b, err := bus.NewRedis(ctx, cfg.RedisConnection, logger)
		if err != nil {
			logger.Warn("redis bus unavailable, falling back to nop", sl.Err(err))
			return bus.Nop{}
		}
		return b
	case "rabbitmq":
		b, err := bus.NewAMQP(cfg.AMQPURL, logger)
		if err != nil {
			logger.Warn("rabbitmq bus unavailable, falling back to nop", sl.Err(err))
			return bus.Nop{}
		}
		return b
	default:
		return bus.NewMemory()
	}
}

// consumeBinding подставляет токен текущей сессии в списание кредита.
type consumeBinding struct {
	provider auth.Provider
	account  *account.Service
}

func newConsumeBinding(provider auth.Provider, accountService *account.Service) *consumeBinding {
	return &consumeBinding{provider: provider, account: accountService}
}

func (b *consumeBinding) ConsumeCredit(ctx context.Context, userID, accessToken string) (bool, error) {
	if accessToken == "" {
		if sess, err := b.provider.Session(ctx); err == nil && sess != nil {
			accessToken = sess.AccessToken
		}
	}
	return b.account.ConsumeCredit(ctx, userID, accessToken)
}

// Provider возвращает адаптер провайдера идентификации.
func (a *App) Provider() auth.Provider { return a.provider }

// Consumers возвращает запущенных потребителей состояния аккаунта.
func (a *App) Consumers() []*consumer.Consumer { return a.consumers }

// Wake будит всех потребителей — аналог возвращения вкладки в фокус.
func (a *App) Wake() {
	for _, c := range a.consumers {
		c.Wake()
	}
}

// Run запускает потребителей и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	unsubscribe := a.provider.OnAuthStateChange(func(event auth.Event, _ *models.Session) {
		a.logger.Info("auth state changed", slog.String("event", string(event)))
		// Смена пользователя делает локальные копии сводок неактуальными.
		a.Wake()
	})
	defer unsubscribe()

	for _, c := range a.consumers {
		go func(c *consumer.Consumer) {
			_ = c.Run(ctx)
		}(c)
	}

	<-ctx.Done()
	if err := a.activity.Close(); err != nil {
		a.logger.Warn("activity bus close failed", sl.Err(err))
	}
	return nil
}
