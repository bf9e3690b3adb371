package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"

	"github.com/BradenHooton/assistiva/internal/models"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ImplicitTLS bool // port 465 style; otherwise STARTTLS on a pooled connection
	PoolSize    int
	SendTimeout time.Duration
}

func (c SMTPConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SMTPSender delivers through an SMTP relay.
type SMTPSender struct {
	cfg    SMTPConfig
	from   From
	auth   smtp.Auth
	tls    *tls.Config
	pool   *email.Pool
	logger *slog.Logger
}

func NewSMTPSender(cfg SMTPConfig, from From, logger *slog.Logger) (*SMTPSender, error) {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	tlsConfig := &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}

	s := &SMTPSender{cfg: cfg, from: from, auth: auth, tls: tlsConfig, logger: logger}

	if !cfg.ImplicitTLS {
		pool, err := email.NewPool(cfg.addr(), cfg.PoolSize, auth, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create smtp pool: %w", err)
		}
		s.pool = pool
	}

	logger.Info("smtp sender configured",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.Bool("implicit_tls", cfg.ImplicitTLS),
	)
	return s, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return &models.DeliveryError{Transport: "smtp", Err: err}
	}

	e, err := buildEmail(s.from, msg)
	if err != nil {
		return &models.DeliveryError{Transport: "smtp", Err: err}
	}

	if s.pool != nil {
		err = s.pool.Send(e, s.cfg.SendTimeout)
	} else {
		err = e.SendWithTLS(s.cfg.addr(), s.auth, s.tls)
	}
	if err != nil {
		s.logger.Error("smtp delivery failed",
			slog.String("host", s.cfg.Host),
			slog.Int("recipients", len(msg.To)),
			slog.Any("error", err),
		)
		return &models.DeliveryError{Transport: "smtp", Err: err}
	}
	return nil
}

// Close releases pooled connections.
func (s *SMTPSender) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
