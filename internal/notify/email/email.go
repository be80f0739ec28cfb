// Package email implements an SMTP-based report notifier
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/notify"
)

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
}

// New creates a new Email notifier from configuration.
func New(cfg config.NotifierConfig) (*Email, error) {
	e := &Email{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		to:       cfg.To,
	}
	if e.port == 0 {
		e.port = 587
	}
	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return nil, fmt.Errorf("email: host, from, and to are required")
	}
	return e, nil
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(_ context.Context, msg notify.Message) error {
	body := e.buildMessage(msg)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	if err := smtp.SendMail(addr, auth, e.from, e.to, body); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

func (e *Email) buildMessage(msg notify.Message) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", e.from)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", msg.Subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString("<html><body style=\"font-family: monospace;\"><pre>")
	sb.WriteString(html.EscapeString(msg.Markdown))
	sb.WriteString("</pre></body></html>\r\n")
	return []byte(sb.String())
}
