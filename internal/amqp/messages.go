package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finwatch/internal/core"
)

// TransactionEvent announces a newly completed expense. It carries only the
// identifiers; the worker loads the transaction from the database.
type TransactionEvent struct {
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(transactionID, userID string) *TransactionEvent {
	return &TransactionEvent{
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes an event and rejects one without a
// transaction id.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID == "" {
		return nil, fmt.Errorf("transaction event without transactionId")
	}
	return &msg, nil
}

// AlertMessage is a created notification as seen by the delivery service.
type AlertMessage struct {
	NotificationID string                `json:"notificationId"`
	UserID         string                `json:"userId"`
	Type           core.NotificationType `json:"type"`
	Title          string                `json:"title"`
	Message        string                `json:"message"`
	Metadata       map[string]any        `json:"metadata,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
}

func NewAlertMessage(n core.Notification) *AlertMessage {
	return &AlertMessage{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Metadata:       n.Metadata,
		CreatedAt:      n.CreatedAt,
	}
}

func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
