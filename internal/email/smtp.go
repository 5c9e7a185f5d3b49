package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Settings struct {
	Host     string
	Port     int
	Username string
	Password string
	// ImplicitTLS dials TLS directly (usually port 465). Otherwise the
	// connection is upgraded with STARTTLS when the server offers it.
	ImplicitTLS bool
	From        string
	FromName    string
}

// Sender delivers plain-text mail over SMTP, one connection per message.
type Sender struct {
	settings Settings
	timeout  time.Duration
}

func NewSender(s Settings) *Sender {
	return &Sender{settings: s, timeout: 15 * time.Second}
}

func (s *Sender) Send(ctx context.Context, msg Message) error {
	if s == nil || s.settings.Host == "" {
		return errors.New("smtp not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("smtp recipient required")
	}

	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.settings.Username != "" {
		auth := smtp.PlainAuth("", s.settings.Username, s.settings.Password, s.settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.settings.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(s.settings.From, s.settings.FromName, msg))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func (s *Sender) connect(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.settings.Host, strconv.Itoa(s.settings.Port))
	tlsCfg := &tls.Config{ServerName: s.settings.Host, MinVersion: tls.VersionTLS12}

	dialer := &net.Dialer{Timeout: s.timeout}
	var (
		conn net.Conn
		err  error
	)
	if s.settings.ImplicitTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.settings.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	if !s.settings.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	return client, nil
}

func buildMessage(fromAddr, fromName string, msg Message) string {
	from := fromAddr
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", fromName), fromAddr)
	}
	lines := []string{
		"From: " + from,
		"To: " + headerValue(msg.To),
		"Subject: " + mime.QEncoding.Encode("utf-8", headerValue(msg.Subject)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		strings.ReplaceAll(msg.Body, "\n", "\r\n"),
	}
	return strings.Join(lines, "\r\n")
}

// headerValue drops line breaks so user-supplied text cannot add headers.
func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
