package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"golang.org/x/time/rate"

	"tradehub/logger"
)

// Message is one notification. ContentHTML is optional; when set it is
// sent as an HTML alternative alongside the plain content.
type Message struct {
	Subject     string
	Content     string
	ContentHTML string
}

// Notifier delivers messages to the user. Disabled notifiers succeed
// without doing anything.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Disabled is the no-op notifier used when notifications are turned off.
type Disabled struct{}

func (Disabled) Notify(context.Context, Message) error { return nil }

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier delivers messages over SMTP. Sends are rate limited so
// a misbehaving strategy cannot flood the user's inbox.
type EmailNotifier struct {
	addr     string
	auth     smtp.Auth
	from     string
	to       []string
	limiter  *rate.Limiter
	send     sendFunc
	log      *logger.Entry
}

// Config for the email notifier.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	// RatePerMinute caps outbound mails. Zero means one per minute.
	RatePerMinute int
}

func NewEmailNotifier(cfg Config) (*EmailNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("smtp from and to addresses are required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 1
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailNotifier{
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:    auth,
		from:    cfg.From,
		to:      cfg.To,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute),
		send:    smtp.SendMail,
		log:     logger.GetLogger().WithComponent("notify"),
	}, nil
}

// Notify sends the message, waiting on the rate limiter first. A
// cancelled context surfaces as an error before any mail is sent.
func (n *EmailNotifier) Notify(ctx context.Context, msg Message) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limit wait: %w", err)
	}
	body := formatMail(n.from, n.to, msg)
	if err := n.send(n.addr, n.auth, n.from, n.to, body); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	logger.IncrementNotificationSent()
	n.log.WithFields(logger.Fields{"subject": msg.Subject}).Debug("notification sent")
	return nil
}

const mimeBoundary = "tradehub-alt"

func formatMail(from string, to []string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)

	if msg.ContentHTML == "" {
		b.WriteString("\r\n")
		b.WriteString(msg.Content)
		b.WriteString("\r\n")
		return []byte(b.String())
	}

	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mimeBoundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", mimeBoundary, msg.Content)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", mimeBoundary, msg.ContentHTML)
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String())
}
