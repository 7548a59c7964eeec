package email

import (
	"bytes"
	"fmt"
	"net/smtp"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendSnapshot mails an exported simulation file as an attachment
func (s *Sender) SendSnapshot(to, filename string, data []byte, summary string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Simulação Cofrinho"

	body := fmt.Sprintf(
		"Olá,\n\n%s\n\nO arquivo em anexo pode ser importado no simulador.\nGerado em: %s\n",
		summary, time.Now().Format("2006-01-02 15:04:05"),
	)
	e.Text = []byte(body)

	if _, err := e.Attach(bytes.NewReader(data), filename, "application/json"); err != nil {
		return fmt.Errorf("failed to attach snapshot: %w", err)
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send snapshot to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Snapshot sent to %s: %s", to, filename)
	return nil
}
