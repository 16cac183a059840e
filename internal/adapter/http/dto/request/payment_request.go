package request

import "encoding/json"

// FinalPaymentRequest documents the body of POST /v1/jobs/:id/final-payment.
//
// `mp_payload` is forwarded to Mercado Pago as-is; a bare provider payload
// without the envelope is accepted too. The amount always comes from the job.
type FinalPaymentRequest struct {
	MPPayload json.RawMessage `json:"mp_payload" swaggertype:"object"`
}
