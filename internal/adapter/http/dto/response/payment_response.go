package response

import (
	"time"

	"crm_pipeline/internal/domain/entities"
)

type PaymentResponse struct {
	PaymentID string    `json:"payment_id"`
	ID        string    `json:"id"`
	JobID     string    `json:"jobId"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method,omitempty"`

	MPPayloadRaw string                 `json:"mp_payload_raw,omitempty"`
	MPPayload    map[string]interface{} `json:"mp_payload,omitempty"`
}

func FromPayment(p entities.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:    p.ID,
		ID:           p.ID,
		JobID:        p.JobID,
		Date:         p.Date,
		Status:       string(p.Status),
		Amount:       p.Amount,
		Method:       p.Method,
		MPPayloadRaw: string(p.ProviderPayloadRaw),
		MPPayload:    p.ProviderPayload,
	}
}

func FromPayments(ps []entities.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, FromPayment(p))
	}
	return out
}
