// Package mail delivers the account emails: activation and password reset
// links. Senders either talk SMTP, log the message, or hand it to the queue.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"fintrack/internal/amqp"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg *amqp.EmailMessage) error
}

// Publisher queues a message for a worker to send.
type Publisher interface {
	PublishEmail(ctx context.Context, msg *amqp.EmailMessage) error
}

// SMTPSender sends through an SMTP relay with PLAIN auth when credentials are set.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
		send: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *amqp.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To, "\r\n") {
		return errors.New("invalid recipient")
	}
	body := compose(s.from, msg, time.Now())
	if err := s.send(s.addr, s.auth, s.from, []string{msg.To}, body); err != nil {
		return fmt.Errorf("smtp send to %s: %w", s.addr, err)
	}
	slog.InfoContext(ctx, "Email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func compose(from string, msg *amqp.EmailMessage, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.Bytes()
}

// LogSender only logs; used when no SMTP relay is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg *amqp.EmailMessage) error {
	slog.InfoContext(ctx, "Email not sent, no SMTP configured",
		"to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

// QueuedSender publishes messages for the worker and falls back to sending
// inline when the broker refuses them.
type QueuedSender struct {
	queue    Publisher
	fallback Sender
}

func NewQueuedSender(queue Publisher, fallback Sender) *QueuedSender {
	return &QueuedSender{queue: queue, fallback: fallback}
}

func (s *QueuedSender) Send(ctx context.Context, msg *amqp.EmailMessage) error {
	err := s.queue.PublishEmail(ctx, msg)
	if err == nil {
		return nil
	}
	slog.WarnContext(ctx, "Email queue unavailable, sending inline", "to", msg.To, "error", err)
	if s.fallback == nil {
		return fmt.Errorf("queue email: %w", err)
	}
	return s.fallback.Send(ctx, msg)
}

// ActivationEmail builds the message carrying the account activation link.
func ActivationEmail(to, username, link string) *amqp.EmailMessage {
	body := fmt.Sprintf("Hi %s,\n\nPlease click on the link below to confirm your registration:\n\n%s\n\nThe link expires in 48 hours.\n", username, link)
	return amqp.NewEmailMessage(to, "Activate your user account.", body)
}

// PasswordResetEmail builds the message carrying the set-password link.
func PasswordResetEmail(to, username, link string) *amqp.EmailMessage {
	body := fmt.Sprintf("Hi %s,\n\nWe received a request to reset your password. Use the link below to choose a new one:\n\n%s\n\nIf you did not ask for this, ignore this email.\n", username, link)
	return amqp.NewEmailMessage(to, "Password reset request", body)
}
