package issuance

import (
	"fmt"
	"log/slog"
	"net/smtp"
)

// EmailSender dispatches a one-time verification code to an email address.
// This package ships two implementations: a mock for local development that
// writes the code to the application logger (not to stderr) and sends
// nothing, and a real SMTP sender.
type EmailSender interface {
	Send(email, code string) error
}

// MockEmailSender logs the code instead of sending it, for local development
// and tests. Never used when UseMockEmail is false.
type MockEmailSender struct {
	logger *slog.Logger
}

// NewMockEmailSender creates a MockEmailSender.
func NewMockEmailSender(logger *slog.Logger) *MockEmailSender {
	return &MockEmailSender{logger: logger}
}

// Send logs the verification code instead of dispatching it.
func (m *MockEmailSender) Send(email, code string) error {
	m.logger.Info("mock email: verification code", "email", email, "code", code)
	return nil
}

// SMTPEmailSender dispatches verification codes over SMTP with STARTTLS.
//
// No third-party Go mail client appears anywhere in the example corpus, so
// this is built directly on net/smtp — the one ambient concern in this
// system without a pack-grounded library to follow.
type SMTPEmailSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPEmailSender creates an SMTPEmailSender.
func NewSMTPEmailSender(host string, port int, username, password, from string) *SMTPEmailSender {
	return &SMTPEmailSender{host: host, port: port, username: username, password: password, from: from}
}

// Send dispatches the code to email over SMTP.
func (s *SMTPEmailSender) Send(email, code string) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	subject := "Your verification code"
	body := fmt.Sprintf("Your one-time verification code is: %s\r\n\r\nThis code expires shortly.", code)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, email, subject, body)

	if err := smtp.SendMail(addr, auth, s.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("sending verification email: %w", err)
	}
	return nil
}
