package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// maxInFlight ограничивает число одновременно обрабатываемых сообщений.
const maxInFlight = 10

// Handler обрабатывает тело сообщения. ctx отменяется при остановке потребителя.
type Handler func(ctx context.Context, body []byte) error

// ConsumerMessage создает потребителя сообщений из очереди RabbitMQ.
// Успешно обработанное сообщение подтверждается, при ошибке handler
// оно возвращается в очередь.
//
// Возвращённый канал закрывается, когда после отмены ctx или закрытия
// доставки завершились все запущенные обработчики и их ack/nack.
// Канал AMQP можно закрывать только после этого.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler Handler) (<-chan struct{}, error) {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	done := make(chan struct{})
	go func() {
		var inFlight sync.WaitGroup
		defer func() {
			inFlight.Wait()
			close(done)
		}()

		sem := make(chan struct{}, maxInFlight)
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					// Не взятое в работу сообщение вернётся в очередь.
					if err := d.Nack(false, true); err != nil {
						log.Error("failed to nack message", sl.Err(err))
					}
					return
				}
				inFlight.Add(1)
				go func(delivery amqp.Delivery) {
					defer func() {
						<-sem
						inFlight.Done()
					}()
					handle(ctx, log, delivery, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done, nil
}

func handle(ctx context.Context, log *slog.Logger, delivery amqp.Delivery, handler Handler) {
	if err := handler(ctx, delivery.Body); err != nil {
		log.Error("failed to handle message", sl.Err(err))
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := delivery.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
