package entities

import (
	"encoding/json"
	"time"
)

// PaymentStatus represents the payment processing outcome.
//
// Only approved payments are persisted today; the other values exist so that
// provider statuses can be mapped without losing information.
type PaymentStatus string

const (
	PaymentStatusPendente PaymentStatus = "pendente"
	PaymentStatusAprovado PaymentStatus = "aprovado"
	PaymentStatusNegado   PaymentStatus = "negado"
)

// Payment is a final-payment record collected for a Job.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (jobId-index): jobId
//
// Provider payload:
//   - ProviderPayloadRaw keeps the original body (JSON) for traceability/audit.
//   - ProviderPayload is the parsed representation, useful for querying/debugging.
type Payment struct {
	ID     string        `json:"id"`
	JobID  string        `json:"jobId"`
	Date   time.Time     `json:"date"`
	Status PaymentStatus `json:"status"`
	Amount float64       `json:"amount"`
	Method string        `json:"method,omitempty"`

	ProviderPayloadRaw json.RawMessage        `json:"providerPayloadRaw,omitempty"`
	ProviderPayload    map[string]interface{} `json:"providerPayload,omitempty"`
}
