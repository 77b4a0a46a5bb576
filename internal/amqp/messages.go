package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TransactionCreatedMessage announces a stored transaction. RecurringID is
// set when the transaction was generated from a recurring rule.
type TransactionCreatedMessage struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	IsIncome    bool            `json:"is_income"`
	Date        string          `json:"date"`
	RecurringID string          `json:"recurring_id,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

func NewTransactionCreatedMessage(tx core.Transaction) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		ID:          tx.ID,
		Amount:      tx.Amount,
		Currency:    string(tx.Currency),
		Category:    tx.Category,
		IsIncome:    tx.IsIncome,
		Date:        tx.Date.String(),
		RecurringID: tx.RecurringID,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
