package service

import (
	"context"
	"crypto/tls"

	"github.com/go-mail/mail/v2"
)

// Message is one outgoing HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Notifier delivers a message. Implementations may block on the network.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer sends mail over SMTP.
type Mailer struct {
	from   string
	dialer *mail.Dialer
}

func NewMailer(host string, port int, user, pass, from string) *Mailer {
	d := mail.NewDialer(host, port, user, pass)
	if port == 465 {
		d.SSL = true
	} else {
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}
	d.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	// DialAndSend takes no context; the dialer timeout bounds each SMTP step.
	d.Timeout = sendTimeout
	return &Mailer{from: from, dialer: d}
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	em := mail.NewMessage()
	em.SetHeader("From", m.from)
	em.SetHeader("To", msg.To)
	em.SetHeader("Subject", msg.Subject)
	em.SetBody("text/html", msg.HTML)
	return m.dialer.DialAndSend(em)
}

// NopNotifier drops every message. Used when SMTP is not configured.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, Message) error { return nil }
