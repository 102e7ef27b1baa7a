// Package mail sends transactional email. Delivery is fire-and-forget: a
// failed send is logged and never blocks or fails the caller's request.
package mail

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"

	"go.uber.org/zap"
)

// Sender dispatches a templated message to one recipient.
type Sender interface {
	Send(to, templateName string, data map[string]string)
}

// Template names used by the auth flows.
const (
	TemplateSignupConfirm    = "signup_confirm"
	TemplatePasswordRecovery = "password_recovery"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "signup_confirm_subject"}}Confirm your signup at Zenith{{end}}
{{define "signup_confirm"}}Welcome to Zenith!

Please confirm your account by opening the link below:

{{.ConfirmLink}}

If you did not sign up, ignore this message.{{end}}

{{define "password_recovery_subject"}}Reset your Zenith password{{end}}
{{define "password_recovery"}}A password reset was requested for your account.

Open the link below to choose a new password:

{{.RecoveryLink}}

If you did not request a reset, ignore this message.{{end}}
`))

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	addr   string
	auth   smtp.Auth
	from   string
	logger *zap.Logger

	// send is swapped out in tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host string, port int, username, password, from string, logger *zap.Logger) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr:   fmt.Sprintf("%s:%d", host, port),
		auth:   auth,
		from:   from,
		logger: logger,
		send:   smtp.SendMail,
	}
}

// Send renders the template and dispatches the message on a goroutine.
func (s *SMTPSender) Send(to, templateName string, data map[string]string) {
	msg, err := s.compose(to, templateName, data)
	if err != nil {
		s.logger.Error("failed to compose mail",
			zap.String("template", templateName),
			zap.Error(err))
		return
	}
	go func() {
		if err := s.send(s.addr, s.auth, s.from, []string{to}, msg); err != nil {
			s.logger.Error("failed to send mail",
				zap.String("to", to),
				zap.String("template", templateName),
				zap.Error(err))
			return
		}
		s.logger.Info("sent mail",
			zap.String("to", to),
			zap.String("template", templateName))
	}()
}

func (s *SMTPSender) compose(to, templateName string, data map[string]string) ([]byte, error) {
	var subject, body bytes.Buffer
	if err := templates.ExecuteTemplate(&subject, templateName+"_subject", data); err != nil {
		return nil, err
	}
	if err := templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return nil, err
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject.String())
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
