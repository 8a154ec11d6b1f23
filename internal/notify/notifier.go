// Package notify delivers expiry alerts to suppliers. The delivery channel
// is a Kafka topic consumed by the mailer; the relay in this package drains
// unsent alerts to it and confirms each delivery back to the scheduler.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vendorhub/internal/expiry"
)

// Notifier delivers one pending alert. An error means "not delivered"; the
// alert stays pending and is retried on the next relay pass.
type Notifier interface {
	Notify(ctx context.Context, alert expiry.PendingAlert) error
}

// Publisher is the broker surface the Kafka notifier needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type alertPayload struct {
	AlertID         string    `json:"alert_id"`
	DocumentID      string    `json:"document_id"`
	SupplierID      string    `json:"supplier_id"`
	CompanyName     string    `json:"company_name"`
	Email           string    `json:"email"`
	DocumentType    string    `json:"document_type"`
	ExpiryDate      time.Time `json:"expiry_date"`
	Urgency         string    `json:"urgency"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
}

// KafkaNotifier publishes alert payloads keyed by supplier so one supplier's
// reminders stay ordered on a partition.
type KafkaNotifier struct {
	publisher Publisher
	topic     string
}

func NewKafkaNotifier(publisher Publisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, alert expiry.PendingAlert) error {
	payload, err := json.Marshal(alertPayload{
		AlertID:         alert.AlertID.String(),
		DocumentID:      alert.DocumentID.String(),
		SupplierID:      alert.SupplierID.String(),
		CompanyName:     alert.CompanyName,
		Email:           alert.Email,
		DocumentType:    string(alert.DocumentType),
		ExpiryDate:      alert.ExpiryDate,
		Urgency:         string(alert.Bucket),
		DaysUntilExpiry: alert.DaysUntilExpiry,
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}
	if err := n.publisher.Publish(ctx, n.topic, []byte(alert.SupplierID.String()), payload); err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.AlertID, err)
	}
	return nil
}
