// Package vnpay implements the VNPay redirect payment gateway.
//
// VNPay is a hosted-payment-page provider: the backend builds a signed
// payment URL, the shopper pays on VNPay's page, and VNPay redirects the
// browser back to the registered return URL with the result in the query
// string, signed with the same shared secret.
package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"silkshop/internal/core/config"
	"silkshop/internal/features/orders/domain"
	paymentports "silkshop/internal/features/payments/ports"

	"github.com/shopspring/decimal"
)

const (
	version = "2.1.0"
	command = "pay"

	// successCode is the value both vnp_ResponseCode and
	// vnp_TransactionStatus must carry for a captured payment.
	successCode = "00"
)

// hundred scales VND amounts to VNPay's smallest-unit convention.
var hundred = decimal.NewFromInt(100)

// Gateway implements paymentports.Gateway for VNPay.
type Gateway struct {
	cfg config.VnpayConfig
	// now is injectable for deterministic create/expire timestamps in tests.
	now func() time.Time
}

// New creates a VNPay gateway from merchant configuration.
func New(cfg config.VnpayConfig) *Gateway {
	return &Gateway{
		cfg: cfg,
		now: time.Now,
	}
}

// Method returns the payment method this gateway serves.
func (g *Gateway) Method() domain.PaymentMethod {
	return domain.PaymentMethodVnpay
}

// BuildPaymentRequest produces the signed hosted-payment-page URL.
//
// VNPay expects amounts multiplied by 100 and a signature computed as
// HMAC-SHA512 over the URL-encoded parameters sorted by key.
func (g *Gateway) BuildPaymentRequest(_ context.Context, req paymentports.PaymentRequest) (string, error) {
	createdAt := g.now()

	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", command)
	params.Set("vnp_TmnCode", g.cfg.TmnCode)
	params.Set("vnp_Amount", req.Amount.Mul(hundred).StringFixed(0))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", strconv.FormatInt(req.TransactionRef, 10))
	params.Set("vnp_OrderInfo", req.Description)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_ReturnUrl", g.cfg.ReturnURL)
	params.Set("vnp_IpAddr", req.ClientIP)
	params.Set("vnp_CreateDate", createdAt.Format("20060102150405"))
	params.Set("vnp_ExpireDate", createdAt.Add(15*time.Minute).Format("20060102150405"))

	// url.Values.Encode sorts by key, which is exactly the canonical form
	// VNPay signs.
	query := params.Encode()
	params.Set("vnp_SecureHash", g.sign(query))

	return g.cfg.BaseURL + "?" + params.Encode(), nil
}

// VerifyCallback authenticates the raw return query string and extracts the
// transaction reference and captured amount.
//
// The signature covers every vnp_ parameter except vnp_SecureHash and
// vnp_SecureHashType, sorted by key. A payload that fails any step is
// rejected without partial results.
func (g *Gateway) VerifyCallback(raw []byte) (*paymentports.CallbackResult, error) {
	params, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("malformed callback query: %w", err)
	}

	received := params.Get("vnp_SecureHash")
	if received == "" {
		return nil, fmt.Errorf("callback carries no signature")
	}
	params.Del("vnp_SecureHash")
	params.Del("vnp_SecureHashType")

	expected := g.sign(params.Encode())
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return nil, fmt.Errorf("signature mismatch")
	}

	ref, err := strconv.ParseInt(params.Get("vnp_TxnRef"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid vnp_TxnRef: %w", err)
	}

	rawAmount, err := decimal.NewFromString(params.Get("vnp_Amount"))
	if err != nil {
		return nil, fmt.Errorf("invalid vnp_Amount: %w", err)
	}

	responseCode := params.Get("vnp_ResponseCode")
	success := responseCode == successCode && params.Get("vnp_TransactionStatus") == successCode

	return &paymentports.CallbackResult{
		Success:        success,
		TransactionRef: ref,
		Amount:         rawAmount.Div(hundred),
		ResponseCode:   responseCode,
	}, nil
}

func (g *Gateway) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(g.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
