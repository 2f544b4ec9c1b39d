package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrMissingAddress = errors.New("mail address is empty")

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type sendFunc func(ctx context.Context, msg *sgmail.SGMailV3) (*rest.Response, error)

type SendGridSender struct {
	from     string
	fromName string
	send     sendFunc
	log      zerolog.Logger
}

func NewSendGridSender(apiKey, from string, log zerolog.Logger) *SendGridSender {
	client := sendgrid.NewSendClient(apiKey)
	return &SendGridSender{
		from:     from,
		fromName: "Melos Company",
		send: func(ctx context.Context, msg *sgmail.SGMailV3) (*rest.Response, error) {
			return client.SendWithContext(ctx, msg)
		},
		log: log.With().Str("component", "mail.sendgrid").Logger(),
	}
}

func (s *SendGridSender) Send(ctx context.Context, to, subject, body string) error {
	if s.from == "" || to == "" {
		return ErrMissingAddress
	}

	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.fromName, s.from),
		subject,
		sgmail.NewEmail("", to),
		body,
		fmt.Sprintf("<pre>%s</pre>", body),
	)

	resp, err := s.send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}

	s.log.Debug().Int("status", resp.StatusCode).Str("to", to).Str("subject", subject).Msg("mail sent")
	return nil
}
