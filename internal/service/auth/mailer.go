package auth

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"

	"github.com/ashwinyue/next-chat/internal/config"
)

// Mailer 发送登录邮件
type Mailer interface {
	SendMagicLink(ctx context.Context, to, link string) error
}

// SMTPMailer 通过 SMTP 发送邮件
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer 创建 SMTP 邮件发送器
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) SendMagicLink(ctx context.Context, to, link string) error {
	msg := buildMagicLinkMessage(m.from, to, link)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMagicLinkMessage(from, to, link string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your sign-in link")
	msg.SetBody("text/plain", fmt.Sprintf("Sign in to Next Chat by opening this link:\n\n%s\n\nIf you didn't request this, you can ignore this email.\n", link))
	msg.AddAlternative("text/html", fmt.Sprintf(`<p>Sign in to Next Chat:</p>
<p><a href="%[1]s">Sign in</a></p>
<p>Or copy this link: %[1]s</p>
<p>If you didn't request this, you can ignore this email.</p>`, html.EscapeString(link)))
	return msg
}
