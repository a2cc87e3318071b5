package handler

import (
	"errors"
	"net/http"

	"silkshop/internal/core/logger"
	"silkshop/internal/features/orders/domain"
	"silkshop/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	// service is the order pipeline.
	service *service.OrderService
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(s *service.OrderService) *OrderHandler {
	return &OrderHandler{
		service: s,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id,omitempty"`
}

// CreateOrderRequest is the inbound payload for order creation.
type CreateOrderRequest struct {
	// ShippingAddress is where the order ships to.
	ShippingAddress string `json:"shipping_address"`
	// CustomerPhone is the contact number for delivery.
	CustomerPhone string `json:"customer_phone"`
	// PaymentMethod is one of cod, vnpay, payos.
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	// Items are the requested (product, quantity) pairs.
	Items []CreateOrderItemRequest `json:"items"`
}

// CreateOrderItemRequest is one requested line item.
type CreateOrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// CreateOrderResponse is the outbound payload for order creation.
type CreateOrderResponse struct {
	// Order is the committed order with snapshot prices and computed total.
	Order *domain.Order `json:"order"`
	// PaymentURL is the provider payment link for online methods; empty for
	// cash on delivery or when the provider could not be reached.
	PaymentURL string `json:"payment_url,omitempty"`
}

// UpdateStatusRequest is the admin payload for a status change.
type UpdateStatusRequest struct {
	Status domain.Status `json:"status"`
}

func rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return "unknown"
}

// requester extracts the caller identity set by the upstream auth proxy.
func requester(c *fiber.Ctx) (uuid.UUID, bool, error) {
	userID, err := uuid.Parse(c.Get("X-User-ID"))
	if err != nil {
		return uuid.Nil, false, err
	}
	return userID, c.Get("X-User-Role") == "admin", nil
}

// CreateOrder godoc
// @Summary Place a new order
// @Description Validates stock, persists the order atomically and, for online payment methods, returns a provider payment URL.
// @Tags orders
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user ID"
// @Param request body CreateOrderRequest true "Order request"
// @Success 201 {object} CreateOrderResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/orders [post]
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, _, err := requester(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "valid X-User-ID header is required",
			RayID:   rayID(c),
		})
	}

	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	input := service.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		CustomerPhone:   req.CustomerPhone,
		PaymentMethod:   req.PaymentMethod,
		ClientIP:        c.IP(),
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.CreateOrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	result, err := h.service.CreateOrder(c.UserContext(), userID, input)
	if err != nil {
		return h.orderError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(CreateOrderResponse{
		Order:      result.Order,
		PaymentURL: result.PaymentURL,
	})
}

// GetMyOrders godoc
// @Summary List the caller's orders
// @Tags orders
// @Produce json
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 200 {array} domain.Order
// @Failure 401 {object} ErrorResponse
// @Router /api/orders/my-orders [get]
func (h *OrderHandler) GetMyOrders(c *fiber.Ctx) error {
	userID, _, err := requester(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "valid X-User-ID header is required",
			RayID:   rayID(c),
		})
	}

	orders, err := h.service.GetMyOrders(c.UserContext(), userID)
	if err != nil {
		return h.orderError(c, err)
	}
	return c.JSON(orders)
}

// GetOrderByID godoc
// @Summary Get one order
// @Description Returns the order when the caller owns it or is an admin.
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Router /api/orders/{id} [get]
func (h *OrderHandler) GetOrderByID(c *fiber.Ctx) error {
	userID, isAdmin, err := requester(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "valid X-User-ID header is required",
			RayID:   rayID(c),
		})
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid order id",
			RayID:   rayID(c),
		})
	}

	order, err := h.service.GetOrderByID(c.UserContext(), orderID, userID, isAdmin)
	if err != nil {
		return h.orderError(c, err)
	}
	return c.JSON(order)
}

// GetAllOrders godoc
// @Summary List all orders (admin)
// @Tags orders
// @Produce json
// @Param X-User-ID header string true "Authenticated user ID"
// @Param X-User-Role header string true "Must be admin"
// @Success 200 {array} domain.Order
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/orders [get]
func (h *OrderHandler) GetAllOrders(c *fiber.Ctx) error {
	_, isAdmin, err := requester(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "valid X-User-ID header is required",
			RayID:   rayID(c),
		})
	}
	if !isAdmin {
		return c.Status(http.StatusForbidden).JSON(ErrorResponse{
			Message: "admin role required",
			RayID:   rayID(c),
		})
	}

	orders, err := h.service.GetAllOrders(c.UserContext())
	if err != nil {
		return h.orderError(c, err)
	}
	return c.JSON(orders)
}

// UpdateOrderStatus godoc
// @Summary Update order status (admin)
// @Description Applies a status change gated by the order state machine.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Param X-User-Role header string true "Must be admin"
// @Param request body UpdateStatusRequest true "Target status"
// @Success 200 {object} domain.Order
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/orders/{id}/status [put]
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	_, isAdmin, err := requester(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "valid X-User-ID header is required",
			RayID:   rayID(c),
		})
	}
	if !isAdmin {
		return c.Status(http.StatusForbidden).JSON(ErrorResponse{
			Message: "admin role required",
			RayID:   rayID(c),
		})
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid order id",
			RayID:   rayID(c),
		})
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	order, err := h.service.UpdateOrderStatus(c.UserContext(), orderID, req.Status)
	if err != nil {
		return h.orderError(c, err)
	}
	return c.JSON(order)
}

// orderError maps pipeline errors onto HTTP statuses.
func (h *OrderHandler) orderError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	msg := "internal server error"

	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrMissingShippingAddress),
		errors.Is(err, domain.ErrInvalidPaymentMethod),
		errors.Is(err, domain.ErrInvalidStatus):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, domain.ErrOrderNotFound):
		status = http.StatusNotFound
		msg = "order not found"
	case errors.Is(err, domain.ErrIllegalTransition):
		status = http.StatusConflict
		msg = err.Error()
	default:
		logger.Get().Error("Order request failed",
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: msg,
		RayID:   rayID(c),
	})
}
