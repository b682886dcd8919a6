package domain

import (
	"encoding/json"
	"time"
)

type TxStatus string

const (
	TxStarted    TxStatus = "started"
	TxPending    TxStatus = "pending"
	TxSuccessful TxStatus = "successful"
	TxFailed     TxStatus = "failed"
	TxCancelled  TxStatus = "cancelled"
)

func (s TxStatus) Valid() bool {
	switch s {
	case TxStarted, TxPending, TxSuccessful, TxFailed, TxCancelled:
		return true
	}
	return false
}

// Open reports whether the gateway may still change the outcome.
func (s TxStatus) Open() bool { return s == TxStarted || s == TxPending }

// Transaction is one payment attempt. CategoryLabel matches Category.Subtitle;
// the physical unit is bound only when the payment succeeds.
type Transaction struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"orderId"`
	CategoryLabel string          `json:"roomName"`
	Amount        float64         `json:"amount"`
	Customer      json.RawMessage `json:"customer,omitempty"` // opaque, stored as-is
	Status        TxStatus        `json:"status"`
	CreatedAt     time.Time       `json:"timestamp"`
	Detail        json.RawMessage `json:"detail,omitempty"` // last gateway payload
}

// GatewayOrder is the validated shape of a gateway status observation.
type GatewayOrder struct {
	OrderID      string
	OrderStatus  string
	Transactions []GatewayTransaction
	Raw          json.RawMessage
}

type GatewayTransaction struct {
	UUID   string
	Status string
	Raw    json.RawMessage
}

// SubStatuses returns the sub-transaction status codes in payload order.
func (o GatewayOrder) SubStatuses() []string {
	out := make([]string, 0, len(o.Transactions))
	for _, t := range o.Transactions {
		out = append(out, t.Status)
	}
	return out
}

// Detail picks the payload stored on the transaction: the first
// sub-transaction when present, otherwise the whole answer.
func (o GatewayOrder) Detail() json.RawMessage {
	if len(o.Transactions) > 0 && len(o.Transactions[0].Raw) > 0 {
		return o.Transactions[0].Raw
	}
	return o.Raw
}

// PaymentForm is what the gateway hands back when a payment is created.
type PaymentForm struct {
	FormToken  string
	PaymentURL string
}

type CreatePaymentRequest struct {
	OrderID  string
	Amount   int64 // cents
	Currency string
	Email    string
}
