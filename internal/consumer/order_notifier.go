package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/SrFlag/Melos-Company/internal/mail"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const GroupID = "storefront-notifier"

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderNotifier e-mails buyers about their orders from the order event stream.
type OrderNotifier struct {
	reader MessageReader
	sender mail.Sender
	log    zerolog.Logger
}

func NewKafkaReader(topic string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewOrderNotifier(reader MessageReader, sender mail.Sender, log zerolog.Logger) *OrderNotifier {
	return &OrderNotifier{
		reader: reader,
		sender: sender,
		log:    log.With().Str("component", "order_notifier").Logger(),
	}
}

// Run consumes until ctx is cancelled.
func (n *OrderNotifier) Run(ctx context.Context) error {
	defer func() {
		if err := n.reader.Close(); err != nil {
			n.log.Error().Err(err).Msg("error closing kafka reader")
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		n.processMessage(ctx)
	}
}

func (n *OrderNotifier) processMessage(ctx context.Context) {
	m, err := n.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		n.log.Error().Err(err).Msg("error reading message")
		return
	}

	if err := n.handle(ctx, m); err != nil {
		// not committed: redelivered after a restart or rebalance
		n.log.Error().Err(err).Int64("offset", m.Offset).Msg("failed to handle order event")
		return
	}

	if err := n.reader.CommitMessages(ctx, m); err != nil {
		n.log.Error().Err(err).Int64("offset", m.Offset).Msg("failed to commit message")
	}
}

func (n *OrderNotifier) handle(ctx context.Context, m kafka.Message) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		// a poison message would block the partition forever
		n.log.Warn().Err(err).Msg("skipping unparseable order event")
		return nil
	}
	if event.Buyer.Email == "" {
		return nil
	}

	var subject, body string
	switch eventType(m) {
	case domain.EventOrderCreated:
		subject, body = createdMail(event)
	case domain.EventOrderStatusChanged:
		subject, body = statusMail(event)
	default:
		return nil
	}

	if err := n.sender.Send(ctx, event.Buyer.Email, subject, body); err != nil {
		return fmt.Errorf("send mail for order %d: %w", event.OrderID, err)
	}
	n.log.Info().Int64("order_id", event.OrderID).Str("event_type", eventType(m)).Msg("order mail sent")
	return nil
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}

func createdMail(e domain.OrderEvent) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Olá, %s!\n\nRecebemos o seu pedido #%d.\n\n", e.Buyer.Name, e.OrderID)
	for _, it := range e.Items {
		subtotal := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		fmt.Fprintf(&b, "%dx %s (%s) - R$ %s\n", it.Quantity, it.ProductName, it.Size, subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: R$ %s\n\nObrigado por comprar na Melos Company.", e.Total.StringFixed(2))
	return fmt.Sprintf("Pedido #%d recebido", e.OrderID), b.String()
}

func statusMail(e domain.OrderEvent) (string, string) {
	body := fmt.Sprintf("Olá, %s!\n\nO status do seu pedido #%d agora é: %s.", e.Buyer.Name, e.OrderID, e.Status)
	return fmt.Sprintf("Pedido #%d: %s", e.OrderID, e.Status), body
}
