package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"siteprobe/internal/logger"
	"siteprobe/internal/report"
)

// implicitTLSPort - порт SMTPS, на нем TLS поднимается сразу, без STARTTLS
const implicitTLSPort = 465

// Sender - отправка готовых писем; *mail.Client подходит как есть
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailConfig - параметры SMTP
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Subject  string
}

// Email - отправляет текстовую сводку и JSON-отчет вложением
type Email struct {
	cfg    EmailConfig
	sender Sender
	now    func() time.Time
	log    logger.Logger
}

// EmailOption - опция почтового канала
type EmailOption func(*Email)

// WithSender - подменяет SMTP-клиент
func WithSender(s Sender) EmailOption { return func(e *Email) { e.sender = s } }

// NewEmail - создает почтовый канал
func NewEmail(cfg EmailConfig, log logger.Logger, opts ...EmailOption) *Email {
	e := &Email{cfg: cfg, now: time.Now, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Notify - реализация Notifier
func (e *Email) Notify(ctx context.Context, rep *report.Report) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Channel: "email", Err: err}
	}
	if e.cfg.Host == "" || e.cfg.From == "" || len(e.cfg.To) == 0 {
		return &DeliveryError{Channel: "email", Err: errors.New("не заданы host, from или to")}
	}

	msg, err := e.Message(rep)
	if err != nil {
		return &DeliveryError{Channel: "email", Err: err}
	}

	sender := e.sender
	if sender == nil {
		client, err := e.Client()
		if err != nil {
			return &DeliveryError{Channel: "email", Err: err}
		}
		sender = client
	}
	if err := sender.DialAndSendWithContext(ctx, msg); err != nil {
		return &DeliveryError{Channel: "email", Err: err}
	}
	e.log.Info("отчет отправлен", logger.Strings("to", e.cfg.To))
	return nil
}

// Client - SMTP-клиент по настройкам: STARTTLS по возможности, на 465 порту сразу TLS
func (e *Email) Client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(e.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if e.cfg.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	}
	if e.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.cfg.Username),
			mail.WithPassword(e.cfg.Password))
	}
	client, err := mail.NewClient(e.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("SMTP-клиент: %w", err)
	}
	return client, nil
}

// Message - письмо: текстовая сводка и JSON-отчет вложением
func (e *Email) Message(rep *report.Report) (*mail.Msg, error) {
	var summary bytes.Buffer
	rep.Print(&summary, false)
	attachment, err := rep.JSON()
	if err != nil {
		return nil, err
	}

	subject := e.cfg.Subject
	if rep.Site != "" {
		subject = fmt.Sprintf("%s: %s", subject, rep.Site)
	}

	msg := mail.NewMsg()
	if err := msg.From(e.cfg.From); err != nil {
		return nil, fmt.Errorf("адрес отправителя: %w", err)
	}
	if err := msg.To(e.cfg.To...); err != nil {
		return nil, fmt.Errorf("адреса получателей: %w", err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(e.now())
	msg.SetBodyString(mail.TypeTextPlain, summary.String())
	if err := msg.AttachReader(FileName(rep), bytes.NewReader(attachment),
		mail.WithFileContentType(mail.ContentType("application/json"))); err != nil {
		return nil, fmt.Errorf("вложение отчета: %w", err)
	}
	return msg, nil
}
