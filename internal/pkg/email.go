package pkg

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

const (
	defaultSMTPPort    = 587
	defaultSMTPTimeout = 10 * time.Second
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 发件人邮箱
	Password string // 授权码/密码
	From     string // 显示的发件人，为空时用 Username
	Timeout  time.Duration
}

// Enabled 未配置 Host 时不发送邮件
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

func (c SMTPConfig) withDefaults() SMTPConfig {
	if c.Port <= 0 {
		c.Port = defaultSMTPPort
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultSMTPTimeout
	}
	if c.From == "" {
		c.From = c.Username
	}
	return c
}

// dialer 465 端口走隐式 TLS，其余端口由 gomail 尝试 STARTTLS
func (c SMTPConfig) dialer() *gomail.Dialer {
	d := gomail.NewDialer(c.Host, c.Port, c.Username, c.Password)
	d.TLSConfig = &tls.Config{ServerName: c.Host, MinVersion: tls.VersionTLS12}
	return d
}

// SendEmail 超过 Timeout 或 ctx 结束就返回，gomail 的连接在后台自行超时关闭
func SendEmail(ctx context.Context, cfg SMTPConfig, to, subject, htmlBody string) error {
	cfg = cfg.withDefaults()
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- cfg.dialer().DialAndSend(m)
	}()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("smtp %s:%d: %w", cfg.Host, cfg.Port, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp %s:%d: %w", cfg.Host, cfg.Port, ctx.Err())
	}
}

func FriendRequestHTML(recipient, requester string) string {
	return fmt.Sprintf(`<p>Hi %s,</p><p><b>%s</b> wants to be your friend.</p><p>Open the app to accept the request and start sharing your location.</p>`,
		html.EscapeString(recipient), html.EscapeString(requester))
}
