package notification

import (
	"fmt"
	"net/smtp"

	"github.com/quantview/quantview/tools/log"
)

// Mail is a send-only notifier delivering alert messages over SMTP.
type Mail struct {
	auth              smtp.Auth
	smtpServerPort    int
	smtpServerAddress string

	to   string
	from string
}

// MailParams configures a Mail notifier.
type MailParams struct {
	SMTPServerPort    int
	SMTPServerAddress string

	To       string
	From     string
	Password string
}

// NewMail creates the notifier from SMTP settings.
func NewMail(params MailParams) Mail {
	return Mail{
		from:              params.From,
		to:                params.To,
		smtpServerPort:    params.SMTPServerPort,
		smtpServerAddress: params.SMTPServerAddress,
		auth: smtp.PlainAuth(
			"",
			params.From,
			params.Password,
			params.SMTPServerAddress,
		),
	}
}

// Notify sends the message as an email. Failures are logged, not returned.
func (t Mail) Notify(text string) {
	serverAddress := fmt.Sprintf("%s:%d", t.smtpServerAddress, t.smtpServerPort)

	message := fmt.Sprintf(
		"To: \"User\" <%s>\nFrom: \"QuantView\" <%s>\nSubject: QuantView alert\n\n%s",
		t.to,
		t.from,
		text,
	)

	err := smtp.SendMail(
		serverAddress,
		t.auth,
		t.from,
		[]string{t.to},
		[]byte(message))
	if err != nil {
		log.WithError(err).Error("notification/mail: send failed")
	}
}
