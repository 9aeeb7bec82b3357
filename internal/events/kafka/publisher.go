package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/josh-kwaku/custodial-ledger/internal/domain"
)

type transactionCompleted struct {
	TransactionID uuid.UUID  `json:"transaction_id"`
	Seq           int64      `json:"seq"`
	Kind          string     `json:"kind"`
	SourceAccount *uuid.UUID `json:"source_account,omitempty"`
	DestAccount   *uuid.UUID `json:"dest_account,omitempty"`
	Amount        int64      `json:"amount"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, record *domain.TransactionRecord) error {
	event := transactionCompleted{
		TransactionID: record.ID,
		Seq:           record.Seq,
		Kind:          string(record.Kind),
		SourceAccount: record.SourceAccount,
		DestAccount:   record.DestAccount,
		Amount:        record.Amount,
		OccurredAt:    record.CreatedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("Publish: marshal: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.ID.String()),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("Publish: write: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
