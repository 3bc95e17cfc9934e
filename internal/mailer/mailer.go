// Package mailer sends moderator notifications over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/logging"
)

// Config holds SMTP settings
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	ModeratorAddr string
}

// SendFunc matches smtp.SendMail
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers plain-text mail
type Mailer struct {
	cfg  Config
	send SendFunc
}

// New creates a mailer. A nil send uses smtp.SendMail.
func New(cfg Config, send SendFunc) *Mailer {
	if send == nil {
		send = smtp.SendMail
	}
	return &Mailer{cfg: cfg, send: send}
}

// Configured reports whether moderator mail can be sent
func (m *Mailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.From != "" && m.cfg.ModeratorAddr != ""
}

// NotifyModerators mails the moderator address. Unconfigured mailers are a no-op.
func (m *Mailer) NotifyModerators(ctx context.Context, subject, body string) error {
	if !m.Configured() {
		logging.Debug().Str("subject", subject).Msg("SMTP not configured, skipping moderator mail")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	to := splitAddrs(m.cfg.ModeratorAddr)
	msg := buildMessage(m.cfg.From, to, subject, body, time.Now())

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, to, msg); err != nil {
		return fmt.Errorf("send moderator mail: %w", err)
	}
	return nil
}

func splitAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// headerSafe drops CR and LF so user-supplied text cannot inject headers
func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func buildMessage(from string, to []string, subject, body string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + headerSafe(from) + "\r\n")
	b.WriteString("To: " + headerSafe(strings.Join(to, ", ")) + "\r\n")
	b.WriteString("Subject: " + headerSafe(subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
