// Package payos implements the PayOS checkout-link payment gateway.
//
// PayOS is an API-driven provider: the backend POSTs a signed
// create-payment-link request and receives a hosted checkout URL; once the
// shopper pays, PayOS delivers the result to a registered webhook, signed
// over the sorted fields of the payload's data object.
package payos

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"silkshop/internal/core/config"
	"silkshop/internal/core/httpclient"
	"silkshop/internal/features/orders/domain"
	paymentports "silkshop/internal/features/payments/ports"

	"github.com/shopspring/decimal"
)

// successCode is PayOS's "ok" result code, used for both API responses and
// webhook payloads.
const successCode = "00"

// Gateway implements paymentports.Gateway for PayOS.
type Gateway struct {
	cfg    config.PayOSConfig
	client *http.Client
}

// New creates a PayOS gateway from merchant configuration.
func New(cfg config.PayOSConfig) *Gateway {
	return &Gateway{
		cfg:    cfg,
		client: httpclient.NewClient(30 * time.Second),
	}
}

// Method returns the payment method this gateway serves.
func (g *Gateway) Method() domain.PaymentMethod {
	return domain.PaymentMethodPayOS
}

type createLinkRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

type createLinkResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		CheckoutURL string `json:"checkoutUrl"`
	} `json:"data"`
}

// BuildPaymentRequest creates a payment link through the PayOS merchant API
// and returns its checkout URL.
//
// The request signature is HMAC-SHA256 over the five payload fields in the
// fixed order amount, cancelUrl, description, orderCode, returnUrl.
func (g *Gateway) BuildPaymentRequest(ctx context.Context, req paymentports.PaymentRequest) (string, error) {
	// PayOS amounts are whole dong; a fractional total cannot be represented.
	if !req.Amount.IsInteger() {
		return "", fmt.Errorf("amount %s is not a whole number of dong", req.Amount)
	}
	amount := req.Amount.IntPart()

	payload := createLinkRequest{
		OrderCode:   req.TransactionRef,
		Amount:      amount,
		Description: req.Description,
		ReturnURL:   g.cfg.ReturnURL,
		CancelURL:   g.cfg.CancelURL,
	}
	payload.Signature = g.sign(fmt.Sprintf(
		"amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		payload.Amount, payload.CancelURL, payload.Description, payload.OrderCode, payload.ReturnURL,
	))

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/v2/payment-requests", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", g.cfg.ClientID)
	httpReq.Header.Set("x-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("payment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read provider response: %w", err)
	}

	var linkResp createLinkResponse
	if err := json.Unmarshal(respBody, &linkResp); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	if linkResp.Code != successCode {
		return "", fmt.Errorf("payment provider rejected request: code=%s desc=%s", linkResp.Code, linkResp.Desc)
	}
	if linkResp.Data.CheckoutURL == "" {
		return "", fmt.Errorf("payment provider returned no checkout URL")
	}

	return linkResp.Data.CheckoutURL, nil
}

type webhookEnvelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

type webhookData struct {
	OrderCode int64  `json:"orderCode"`
	Amount    int64  `json:"amount"`
	Code      string `json:"code"`
}

// VerifyCallback authenticates a raw webhook body.
//
// The signature is HMAC-SHA256 over the data object's fields sorted
// alphabetically by key and joined as key=value pairs. The signed bytes are
// recomputed from the raw JSON so number formatting survives the round trip.
func (g *Gateway) VerifyCallback(raw []byte) (*paymentports.CallbackResult, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed webhook body: %w", err)
	}
	if envelope.Signature == "" {
		return nil, fmt.Errorf("webhook carries no signature")
	}
	if len(envelope.Data) == 0 {
		return nil, fmt.Errorf("webhook carries no data")
	}

	canonical, err := canonicalize(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize webhook data: %w", err)
	}
	expected := g.sign(canonical)
	if !hmac.Equal([]byte(expected), []byte(envelope.Signature)) {
		return nil, fmt.Errorf("signature mismatch")
	}

	var data webhookData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("malformed webhook data: %w", err)
	}

	return &paymentports.CallbackResult{
		Success:        envelope.Code == successCode && data.Code == successCode,
		TransactionRef: data.OrderCode,
		Amount:         decimal.NewFromInt(data.Amount),
		ResponseCode:   data.Code,
	}, nil
}

// canonicalize renders a JSON object as key=value pairs sorted by key, the
// form PayOS signs webhooks over. Numbers keep their original textual form.
func canonicalize(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return "", err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(pairs, "&"), nil
}

func (g *Gateway) sign(data string) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.ChecksumKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
