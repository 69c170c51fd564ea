package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/mail"
	"net/smtp"

	"registration-gateway/internal/config"
	"registration-gateway/internal/models"
)

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 500px; margin: auto; border: 2px dashed #FF6600; border-radius: 10px; padding: 20px; background-color: #fff9f2;">
	<div style="text-align: center;">
		<h2 style="color: #FF6600;">Registration received</h2>
		<p style="font-size: 16px; color: #555;">{{if .Name}}Hi {{.Name}}, w{{else}}W{{end}}e have your registration.</p>
		<div style="font-size: 24px; font-weight: bold; color: #000; background-color: #FFE0CC; padding: 10px; display: inline-block; border-radius: 8px; letter-spacing: 2px;">
			{{.ID}}
		</div>
		<p style="font-size: 14px; color: #888; margin-top: 15px;">Quote this registration number if you contact the organisers.</p>
	</div>
</div>`))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends registration confirmations over SMTP.
type SMTPMailer struct {
	cfg  config.SMTPConfig
	send sendFunc
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) SendConfirmation(ctx context.Context, record *models.RegistrationRecord) error {
	to := record.Email()
	if to == "" {
		return fmt.Errorf("registration %s has no email address", record.ID)
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("registration %s: invalid email address: %w", record.ID, err)
	}
	to = addr.Address

	msg, err := m.compose(to, record)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	// net/smtp has no context support; the send runs to completion and
	// only the wait is abandoned.
	done := make(chan error, 1)
	go func() {
		done <- m.send(net.JoinHostPort(m.cfg.Host, m.cfg.Port), auth, m.cfg.From, []string{to}, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send confirmation to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SMTPMailer) compose(to string, record *models.RegistrationRecord) ([]byte, error) {
	var body bytes.Buffer
	fmt.Fprintf(&body, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", to)
	body.WriteString("Subject: Your registration is confirmed\r\n")
	body.WriteString("MIME-version: 1.0;\r\n")
	body.WriteString("Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n")

	err := confirmationTemplate.Execute(&body, struct{ ID, Name string }{record.ID, record.Name()})
	if err != nil {
		return nil, fmt.Errorf("render confirmation: %w", err)
	}
	return body.Bytes(), nil
}
