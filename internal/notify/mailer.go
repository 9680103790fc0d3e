// Package notify renders and delivers e-mail notifications
package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/bootcamp/registry/internal/config"
	"gopkg.in/mail.v2"
)

// Template names
const (
	TemplateMessage = "message"
)

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[string]emailTemplate{
	TemplateMessage: {
		subject: template.Must(template.New("message-subject").Parse(`{{ .SUBJECT }}`)),
		body: template.Must(template.New("message-body").Parse(`<html><body>
<h2>{{ .SUBJECT }}</h2>
<p>{{ .MESSAGE }}</p>
{{ if .BUTTON_URL }}<p><a href="{{ .BUTTON_URL }}">{{ .BUTTON }}</a></p>{{ end }}
</body></html>`)),
	},
}

// Dialer is the part of *mail.Dialer used to deliver messages
type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// Mailer delivers templated e-mails over SMTP
type Mailer struct {
	dialer Dialer
	from   string
}

// NewMailer creates a mailer from SMTP settings
func NewMailer(cfg config.SMTPConfig) *Mailer {
	return NewMailerWithDialer(mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

// NewMailerWithDialer creates a mailer on top of an existing dialer
func NewMailerWithDialer(dialer Dialer, from string) *Mailer {
	return &Mailer{dialer: dialer, from: from}
}

// Render produces the subject and HTML body of a template
func Render(templateName string, data map[string]string) (string, string, error) {
	tpl, ok := templates[templateName]
	if !ok {
		return "", "", fmt.Errorf("unknown email template: %s", templateName)
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("failed to render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render body: %w", err)
	}
	return subject.String(), body.String(), nil
}

// Send renders templateName with data and delivers it to one recipient
func (m *Mailer) Send(to, templateName string, data map[string]string) error {
	subject, body, err := Render(templateName, data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
