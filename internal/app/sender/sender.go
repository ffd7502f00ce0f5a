// Package sender собирает процесс, который читает очередь уведомлений и
// отправляет письма подтверждения e-mail по SMTP.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/lib/smtp"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	senderservice "github.com/magabrotheeeer/account-service/internal/services/sender"
)

// EmailSender отправляет письмо по телу сообщения из очереди.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, body []byte) error
}

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService EmailSender
	metricsServer *http.Server
	logger        *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	queues := rabbitmq.GetNotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		conn.Close()
		return nil, err
	}

	newTransport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(logger, newTransport)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		metricsServer: &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	go func() {
		a.logger.Info("metrics server starting on", slog.String("address", a.metricsServer.Addr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", sl.Err(err))
		}
	}()

	consumed, err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.QueueVerification, a.handleVerification)
	if err != nil {
		a.logger.Error("failed to start verification consumer", sl.Err(err))
		a.shutdown()
		return err
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")
	// ack/nack обработчиков должны уйти до закрытия канала.
	<-consumed
	a.shutdown()
	return nil
}

// handleVerification отправляет письмо. Неразбираемые сообщения
// подтверждаются и отбрасываются, остальные ошибки возвращают сообщение в очередь.
func (a *App) handleVerification(ctx context.Context, body []byte) error {
	const op = "app.sender.handleVerification"
	err := a.senderService.SendVerificationEmail(ctx, body)
	switch {
	case err == nil:
		metrics.EmailsSent.WithLabelValues(metrics.ResultSuccess).Inc()
		return nil
	case errors.Is(err, senderservice.ErrBadMessage):
		metrics.EmailsSent.WithLabelValues(metrics.ResultDropped).Inc()
		a.logger.Warn("dropping malformed message", slog.String("op", op), sl.Err(err))
		return nil
	default:
		metrics.EmailsSent.WithLabelValues(metrics.ResultFailure).Inc()
		return err
	}
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metricsServer.Shutdown(ctx); err != nil {
		a.logger.Error("failed to stop metrics server", sl.Err(err))
	}

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
