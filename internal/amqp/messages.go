package amqp

import (
	"encoding/json"
	"time"
)

// PostingMessage announces one transaction materialized from a recurring
// rule. Consumers fetch anything further from the database; the message
// carries just enough to locate the affected day and row.
type PostingMessage struct {
	RuleID        int64     `json:"rule_id"`
	TransactionID int64     `json:"transaction_id"`
	PostedDate    string    `json:"posted_date"` // YYYY-MM-DD
	AmountCents   int64     `json:"amount_cents"`
	Direction     string    `json:"direction"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewPostingMessage creates a posting announcement.
func NewPostingMessage(ruleID, transactionID int64, postedDate string, amountCents int64, direction string) *PostingMessage {
	return &PostingMessage{
		RuleID:        ruleID,
		TransactionID: transactionID,
		PostedDate:    postedDate,
		AmountCents:   amountCents,
		Direction:     direction,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *PostingMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PostingMessageFromJSON creates a message from JSON bytes.
func PostingMessageFromJSON(data []byte) (*PostingMessage, error) {
	var msg PostingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
