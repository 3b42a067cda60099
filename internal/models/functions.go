package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	CapturePaymentFunction = "capture-payment"
	RefundPaymentFunction  = "refund-payment"
)

// FunctionInvoker calls Supabase Edge Functions. The payment processor is only
// reachable through them.
type FunctionInvoker interface {
	InvokeFunction(ctx context.Context, name string, payload interface{}, accessToken string) ([]byte, error)
}

type CaptureRequest struct {
	BookingID       string  `json:"booking_id"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"`
}

type RefundRequest struct {
	BookingID       string  `json:"booking_id"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"`
	Reason          string  `json:"reason,omitempty"`
}

// PaymentResult is the common reply shape of both payment functions.
type PaymentResult struct {
	Success        bool    `json:"success"`
	CapturedAmount float64 `json:"captured_amount,omitempty"`
	ChargeID       string  `json:"charge_id,omitempty"`
	RefundedAmount float64 `json:"refunded_amount,omitempty"`
	RefundID       string  `json:"refund_id,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// InvokeFunction POSTs payload as JSON to the project's /functions/v1/<name>
// endpoint. The caller's token is forwarded so the function runs as them; the
// anon key is used when there is none.
func (su *SupabaseRepo) InvokeFunction(ctx context.Context, name string, payload interface{}, accessToken string) ([]byte, error) {
	if su.url == "" || su.key == "" {
		return nil, UpstreamError{Service: name, Msg: "supabase url and key are required to call edge functions"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}

	endpoint := strings.TrimRight(su.url, "/") + "/functions/v1/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", name, err)
	}
	bearer := accessToken
	if bearer == "" {
		bearer = su.key
	}
	req.Header.Set("apikey", su.key)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	client := su.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, UpstreamError{Service: name, Msg: "edge function unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, UpstreamError{Service: name, Msg: "failed to read edge function response", Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, UpstreamError{Service: name, Msg: functionErrorMessage(resp.StatusCode, raw)}
	}
	return raw, nil
}

func functionErrorMessage(status int, raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fmt.Sprintf("edge function returned %d", status)
}

// DecodePaymentResult turns a function reply into a result, surfacing the
// processor's own message when it reports failure.
func DecodePaymentResult(raw []byte) (*PaymentResult, error) {
	var res PaymentResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, UpstreamError{Service: "payments", Msg: "unreadable payment response", Err: err}
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "payment was not processed"
		}
		return &res, UpstreamError{Service: "payments", Msg: msg}
	}
	return &res, nil
}
