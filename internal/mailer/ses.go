package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/BradenHooton/assistiva/internal/models"
)

// sesAPI is the subset of the SES client used here.
type sesAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESSender sends raw MIME messages through Amazon SES so attachments survive.
type SESSender struct {
	client sesAPI
	from   From
	logger *slog.Logger
}

func NewSESSender(ctx context.Context, region string, from From, logger *slog.Logger) (*SESSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESSender{
		client: ses.NewFromConfig(cfg),
		from:   from,
		logger: logger,
	}, nil
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	e, err := buildEmail(s.from, msg)
	if err != nil {
		return &models.DeliveryError{Transport: "ses", Err: err}
	}

	raw, err := e.Bytes()
	if err != nil {
		return &models.DeliveryError{Transport: "ses", Err: fmt.Errorf("encode message: %w", err)}
	}

	out, err := s.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(s.from.String()),
		Destinations: msg.To,
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		s.logger.Error("ses delivery failed",
			slog.Int("recipients", len(msg.To)),
			slog.Any("error", err),
		)
		return &models.DeliveryError{Transport: "ses", Err: err}
	}

	s.logger.Debug("email sent via ses", slog.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
