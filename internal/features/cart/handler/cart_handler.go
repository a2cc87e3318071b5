package handler

import (
	"errors"
	"net/http"

	"silkshop/internal/core/logger"
	catalogdomain "silkshop/internal/features/catalog/domain"

	"silkshop/internal/features/cart/domain"
	"silkshop/internal/features/cart/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartHandler handles HTTP requests for shopping carts.
type CartHandler struct {
	service *service.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(s *service.CartService) *CartHandler {
	return &CartHandler{
		service: s,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id,omitempty"`
}

// AddItemRequest represents the request body for adding a cart item.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return "unknown"
}

func identity(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Get("X-User-ID"))
}

// AddItem godoc
// @Summary Add an item to the cart
// @Description Validates the product against the catalog and stores a name/price snapshot in the caller's cart.
// @Tags cart
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user ID"
// @Param request body AddItemRequest true "Item to add"
// @Success 200 {object} domain.Cart
// @Failure 400 {object} ErrorResponse
// @Router /api/cart/items [post]
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID, err := identity(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "valid X-User-ID header is required",
			RayID:   rayID(c),
		})
	}

	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	cart, err := h.service.AddItem(c.UserContext(), userID, req.ProductID, req.Quantity)
	if err != nil {
		return h.cartError(c, err)
	}
	return c.JSON(cart)
}

// GetCart godoc
// @Summary Get the caller's cart
// @Tags cart
// @Produce json
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 200 {object} domain.Cart
// @Router /api/cart [get]
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, err := identity(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "valid X-User-ID header is required",
			RayID:   rayID(c),
		})
	}

	cart, err := h.service.GetCart(c.UserContext(), userID)
	if err != nil {
		return h.cartError(c, err)
	}
	return c.JSON(cart)
}

// UpdateQuantityRequest represents the request body for changing a line quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItemQuantity godoc
// @Summary Change the quantity of a cart line
// @Tags cart
// @Accept json
// @Produce json
// @Param productId path string true "Product ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Param request body UpdateQuantityRequest true "New quantity"
// @Success 200 {object} domain.Cart
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/cart/items/{productId} [put]
func (h *CartHandler) UpdateItemQuantity(c *fiber.Ctx) error {
	userID, err := identity(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "valid X-User-ID header is required",
			RayID:   rayID(c),
		})
	}

	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid product id",
			RayID:   rayID(c),
		})
	}

	var req UpdateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	cart, err := h.service.UpdateItemQuantity(c.UserContext(), userID, productID, req.Quantity)
	if err != nil {
		return h.cartError(c, err)
	}
	return c.JSON(cart)
}

// RemoveItem godoc
// @Summary Remove an item from the cart
// @Tags cart
// @Produce json
// @Param productId path string true "Product ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 200 {object} domain.Cart
// @Failure 404 {object} ErrorResponse
// @Router /api/cart/items/{productId} [delete]
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, err := identity(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "valid X-User-ID header is required",
			RayID:   rayID(c),
		})
	}

	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid product id",
			RayID:   rayID(c),
		})
	}

	cart, err := h.service.RemoveItem(c.UserContext(), userID, productID)
	if err != nil {
		return h.cartError(c, err)
	}
	return c.JSON(cart)
}

// ClearCart godoc
// @Summary Empty the caller's cart
// @Tags cart
// @Produce json
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 204
// @Router /api/cart [delete]
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, err := identity(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "valid X-User-ID header is required",
			RayID:   rayID(c),
		})
	}

	if err := h.service.ClearCart(c.UserContext(), userID); err != nil {
		return h.cartError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *CartHandler) cartError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   rayID(c),
		})
	case errors.Is(err, catalogdomain.ErrProductNotFound),
		errors.Is(err, domain.ErrItemNotInCart):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   rayID(c),
		})
	}

	logger.Get().Error("Cart request failed",
		zap.String("ray_id", rayID(c)),
		zap.Error(err),
	)
	return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
		Message: "internal server error",
		RayID:   rayID(c),
	})
}
