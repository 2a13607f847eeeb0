package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPDispatcher sends mail through an authenticated SMTP relay.
type SMTPDispatcher struct {
	cfg SMTPConfig
}

func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPDispatcher{cfg: cfg}
}

func (d *SMTPDispatcher) buildMessage(msg Message) (*mail.Msg, error) {
	if err := msg.validate(); err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.From(d.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", d.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("%w: invalid recipient %q: %v", ErrInvalidMessage, msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	m, err := d.buildMessage(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(d.cfg.Host,
		mail.WithPort(d.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(d.cfg.Username),
		mail.WithPassword(d.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", d.cfg.Host, err)
	}
	return nil
}
