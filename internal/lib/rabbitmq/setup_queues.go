package rabbitmq

const (
	// ExchangeNotifications обменник для всех писем сервиса.
	ExchangeNotifications = "notifications"
	// RoutingKeyVerification ключ писем с подтверждением e-mail.
	RoutingKeyVerification = "verification"
	// QueueVerification очередь, которую читает sender.
	QueueVerification = "notification.verification"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueVerification, RoutingKey: RoutingKeyVerification},
	}
}
