// Package metrics объявляет метрики Prometheus сервиса учётных записей.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения метки result.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultAlready = "already_verified"
	ResultDropped = "dropped"
)

var (
	// Registrations число успешно созданных пользователей.
	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "account",
		Name:      "registrations_total",
		Help:      "Number of registered users.",
	})

	// Logins попытки входа по результату.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "account",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	// Verifications попытки подтверждения e-mail по результату.
	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "account",
		Name:      "verifications_total",
		Help:      "E-mail verification attempts by result.",
	}, []string{"result"})

	// TokensIssued выпущенные токены по назначению.
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "account",
		Name:      "tokens_issued_total",
		Help:      "Signed tokens issued by purpose.",
	}, []string{"purpose"})

	// ProvisioningFailures ошибки создания бизнеса или отправки письма.
	ProvisioningFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "account",
		Name:      "provisioning_failures_total",
		Help:      "Failed provisioning steps by stage.",
	}, []string{"stage"})

	// EmailsSent письма, отправленные процессом sender, по результату.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "account",
		Name:      "emails_sent_total",
		Help:      "Verification e-mails handled by the sender by result.",
	}, []string{"result"})
)
