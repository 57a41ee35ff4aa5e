package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/crewdoghq/crewdog-client/internal/lib/sl"
)

// AMQP — межпроцессная реализация шины поверх fanout-обменника RabbitMQ.
// Каждый подписчик получает собственную эксклюзивную очередь, привязанную
// к обменнику, поэтому каждое событие доходит до каждого подписчика.
// Очереди автоудаляемые, истории сообщений нет.
type AMQP struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *slog.Logger
}

// NewAMQP подключается к RabbitMQ и объявляет fanout-обменник шины.
func NewAMQP(url string, log *slog.Logger) (*AMQP, error) {
	const op = "bus.NewAMQP"
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.ExchangeDeclare(ChannelName, "fanout", false, true, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AMQP{conn: conn, ch: ch, exchange: ChannelName, log: log}, nil
}

// Publish отправляет событие в fanout-обменник.
func (a *AMQP) Publish(_ context.Context, event Event) error {
	const op = "bus.AMQP.Publish"
	body, err := encodeMessage(event)
	if err != nil {
		return err
	}
	err = a.ch.Publish(a.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Subscribe заводит эксклюзивную очередь подписчика и начинает доставку.
// При ошибке подписки возвращается закрытый канал: потребитель продолжит
// работать без уведомлений шины.
func (a *AMQP) Subscribe(ctx context.Context) (<-chan Event, func()) {
	out := make(chan Event, subscriberBuffer)

	ch, err := a.conn.Channel()
	if err != nil {
		a.log.Warn("failed to open channel for subscriber", sl.Err(err))
		close(out)
		return out, func() {}
	}
	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err == nil {
		err = ch.QueueBind(queue.Name, "", a.exchange, false, nil)
	}
	var delivery <-chan amqp.Delivery
	if err == nil {
		delivery, err = ch.Consume(queue.Name, "", true, true, false, false, nil)
	}
	if err != nil {
		a.log.Warn("failed to subscribe", sl.Err(err))
		ch.Close()
		close(out)
		return out, func() {}
	}

	go func() {
		defer close(out)
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				event, known := decodeMessage(d.Body)
				if !known {
					continue
				}
				select {
				case out <- event:
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() {
		if err := ch.Close(); err != nil {
			a.log.Warn("failed to close subscriber channel", sl.Err(err))
		}
	}
}

// Close разрывает соединение с RabbitMQ.
func (a *AMQP) Close() error {
	if err := a.ch.Close(); err != nil {
		a.log.Warn("failed to close publisher channel", sl.Err(err))
	}
	return a.conn.Close()
}
