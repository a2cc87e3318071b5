package handler

import (
	"errors"
	"net/http"

	"silkshop/internal/core/logger"
	"silkshop/internal/features/orders/domain"
	"silkshop/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// fallbackQuery is appended to the frontend redirect when VNPay sends the
// shopper back with no result parameters at all.
const fallbackQuery = "vnp_ResponseCode=99"

// PaymentHandler handles provider callbacks and webhooks.
type PaymentHandler struct {
	service *service.OrderService
	// frontendCallbackURL receives the shopper's browser after a VNPay
	// redirect, with the provider's query string appended untouched.
	frontendCallbackURL string
}

// NewPaymentHandler creates a new instance of PaymentHandler.
func NewPaymentHandler(s *service.OrderService, frontendCallbackURL string) *PaymentHandler {
	return &PaymentHandler{
		service:             s,
		frontendCallbackURL: frontendCallbackURL,
	}
}

// VnpayCallback godoc
// @Summary VNPay return endpoint
// @Description Receives the shopper's browser back from VNPay, reconciles the payment and redirects to the frontend result page with the provider's query string appended.
// @Tags payments
// @Success 302
// @Router /api/payments/vnpay/callback [get]
func (h *PaymentHandler) VnpayCallback(c *fiber.Ctx) error {
	rawQuery := string(c.Request().URI().QueryString())

	// The shopper lands on the frontend result page no matter how
	// reconciliation went; the page reads the provider parameters itself.
	redirect := h.frontendCallbackURL + "?" + fallbackQuery
	if rawQuery != "" {
		redirect = h.frontendCallbackURL + "?" + rawQuery

		outcome, err := h.service.ReconcilePayment(c.UserContext(), domain.PaymentMethodVnpay, []byte(rawQuery))
		if err != nil {
			logger.Get().Warn("VNPay callback not applied",
				zap.Error(err),
			)
		} else {
			logger.Get().Info("VNPay callback reconciled",
				zap.String("outcome", string(outcome.Outcome)),
			)
		}
	}

	return c.Redirect(redirect, http.StatusFound)
}

// PayOSWebhook godoc
// @Summary PayOS webhook endpoint
// @Description Verifies and reconciles a PayOS payment webhook. Returns 200 for applied and benign duplicate deliveries so the provider stops retrying, 400 for payloads that fail verification.
// @Tags payments
// @Accept json
// @Success 200
// @Failure 400
// @Router /api/payments/payos/webhook [post]
func (h *PaymentHandler) PayOSWebhook(c *fiber.Ctx) error {
	result, err := h.service.ReconcilePayment(c.UserContext(), domain.PaymentMethodPayOS, c.Body())
	if err != nil {
		if errors.Is(err, service.ErrPaymentVerificationFailed) ||
			errors.Is(err, service.ErrUnsupportedPaymentMethod) {
			return c.SendStatus(http.StatusBadRequest)
		}
		logger.Get().Error("PayOS webhook reconciliation failed",
			zap.Error(err),
		)
		return c.SendStatus(http.StatusInternalServerError)
	}

	logger.Get().Info("PayOS webhook reconciled",
		zap.String("outcome", string(result.Outcome)),
	)
	return c.SendStatus(http.StatusOK)
}
