package models

// VerificationMessage сообщение в очереди уведомлений со ссылкой подтверждения e-mail.
type VerificationMessage struct {
	UserUID    string   `json:"user_uid"`
	Username   string   `json:"username"`
	Recipients []string `json:"recipients"`
	Link       string   `json:"link"`
}
