package mailer

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
	// Body overrides the built-in markdown template.
	Body string
	// RequireTLS fails delivery when the server does not offer STARTTLS.
	RequireTLS bool
	Timeout    time.Duration
}

// SMTPDispatcher delivers verification codes over SMTP.
type SMTPDispatcher struct {
	cfg      Config
	from     *mail.Address
	renderer *Renderer
	dialer   net.Dialer
}

// NewSMTPDispatcher validates cfg and prepares the template.
func NewSMTPDispatcher(cfg Config) (*SMTPDispatcher, error) {
	if cfg.Host == "" {
		return nil, errors.New("mailer: host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("mailer: invalid from address: %w", err)
	}
	renderer, err := NewRenderer(cfg.Subject, cfg.Body)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	return &SMTPDispatcher{
		cfg:      cfg,
		from:     from,
		renderer: renderer,
		dialer:   net.Dialer{Timeout: cfg.Timeout},
	}, nil
}

// SendVerificationCode renders msg and sends it as multipart/alternative.
func (d *SMTPDispatcher) SendVerificationCode(ctx context.Context, msg goAccount.VerificationMessage) error {
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("mailer: invalid recipient: %w", err)
	}
	if msg.Name != "" {
		to.Name = msg.Name
	}

	rendered, err := d.renderer.Render(msg)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	body, err := buildMessage(d.from, to, rendered)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	if err := d.send(ctx, to.Address, body); err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	return nil
}

func (d *SMTPDispatcher) send(ctx context.Context, to string, body []byte) error {
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	conn, err := d.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	deadline := time.Now().Add(d.cfg.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, d.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: d.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	} else if d.cfg.RequireTLS {
		return errors.New("server does not support STARTTLS")
	}

	if d.cfg.Username != "" {
		auth := smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(d.from.Address); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("end data: %w", err)
	}
	return c.Quit()
}

func buildMessage(from, to *mail.Address, r Rendered) ([]byte, error) {
	var raw [12]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return nil, err
	}
	boundary := "goaccount-" + hex.EncodeToString(raw[:])

	var b bytes.Buffer
	writeHeader := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	writeHeader("From", from.String())
	writeHeader("To", to.String())
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", r.Subject))
	writeHeader("Date", time.Now().Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", `multipart/alternative; boundary="`+boundary+`"`)
	b.WriteString("\r\n")

	for _, part := range []struct{ ctype, body string }{
		{"text/plain; charset=utf-8", r.Text},
		{"text/html; charset=utf-8", r.HTML},
	} {
		b.WriteString("--" + boundary + "\r\n")
		writeHeader("Content-Type", part.ctype)
		writeHeader("Content-Transfer-Encoding", "quoted-printable")
		b.WriteString("\r\n")
		qp := quotedprintable.NewWriter(&b)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
		b.WriteString("\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return b.Bytes(), nil
}
