package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/crewdoghq/crewdog-client/internal/config"
	"github.com/crewdoghq/crewdog-client/internal/lib/sl"
)

// Redis — межпроцессная реализация шины поверх Redis pub/sub: все
// экземпляры клиента одного развертывания слушают общий канал.
type Redis struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

// NewRedis подключается к Redis и возвращает шину на канале ChannelName.
// При недоступности Redis вызывающая сторона переходит на заглушку Nop,
// поэтому ошибка здесь не фатальна для клиента.
func NewRedis(ctx context.Context, cfg config.RedisConnection, log *slog.Logger) (*Redis, error) {
	const op = "bus.NewRedis"
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		Username:     cfg.User,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Redis{client: client, channel: ChannelName, log: log}, nil
}

// Publish отправляет событие в общий канал.
func (r *Redis) Publish(ctx context.Context, event Event) error {
	const op = "bus.Redis.Publish"
	body, err := encodeMessage(event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Subscribe открывает подписку на общий канал. Нераспознанные сообщения
// пропускаются молча.
func (r *Redis) Subscribe(ctx context.Context) (<-chan Event, func()) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	out := make(chan Event, subscriberBuffer)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			event, ok := decodeMessage([]byte(msg.Payload))
			if !ok {
				continue
			}
			select {
			case out <- event:
			default:
			}
		}
	}()

	return out, func() {
		if err := pubsub.Close(); err != nil {
			r.log.Warn("failed to close redis subscription", sl.Err(err))
		}
	}
}

// Close разрывает соединение с Redis.
func (r *Redis) Close() error {
	return r.client.Close()
}
