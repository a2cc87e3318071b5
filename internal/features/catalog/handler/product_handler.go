package handler

import (
	"errors"
	"net/http"

	"silkshop/internal/core/logger"
	"silkshop/internal/features/catalog/domain"
	"silkshop/internal/features/catalog/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service *service.CatalogService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(s *service.CatalogService) *ProductHandler {
	return &ProductHandler{
		service: s,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id,omitempty"`
}

// CreateProductRequest represents the request body for creating a product.
type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url"`
}

func rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return "unknown"
}

// ListProducts godoc
// @Summary List products
// @Tags catalog
// @Produce json
// @Success 200 {array} domain.Product
// @Router /api/products [get]
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		logger.Get().Error("Failed to list products",
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}
	return c.JSON(products)
}

// GetProduct godoc
// @Summary Get one product
// @Tags catalog
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} ErrorResponse
// @Router /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid product id",
			RayID:   rayID(c),
		})
	}

	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Message: "product not found",
				RayID:   rayID(c),
			})
		}
		logger.Get().Error("Failed to get product",
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}
	return c.JSON(product)
}

// CreateProduct godoc
// @Summary Create a product (admin)
// @Tags catalog
// @Accept json
// @Produce json
// @Param X-User-Role header string true "Must be admin"
// @Param request body CreateProductRequest true "Product details"
// @Success 201 {object} domain.Product
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/products [post]
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	if c.Get("X-User-Role") != "admin" {
		return c.Status(http.StatusForbidden).JSON(ErrorResponse{
			Message: "admin role required",
			RayID:   rayID(c),
		})
	}

	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	product, err := h.service.CreateProduct(c.UserContext(), req.Name, req.Description, req.Price, req.Stock, req.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingName),
			errors.Is(err, domain.ErrInvalidPrice),
			errors.Is(err, domain.ErrInvalidStock):
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		}
		logger.Get().Error("Failed to create product",
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}

	return c.Status(http.StatusCreated).JSON(product)
}

// UpdateProduct godoc
// @Summary Update a product (admin)
// @Tags catalog
// @Accept json
// @Produce json
// @Param X-User-Role header string true "Must be admin"
// @Param id path string true "Product ID"
// @Param request body CreateProductRequest true "Product details"
// @Success 200 {object} domain.Product
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	if c.Get("X-User-Role") != "admin" {
		return c.Status(http.StatusForbidden).JSON(ErrorResponse{
			Message: "admin role required",
			RayID:   rayID(c),
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid product id",
			RayID:   rayID(c),
		})
	}

	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	product, err := h.service.UpdateProduct(c.UserContext(), id, req.Name, req.Description, req.Price, req.Stock, req.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Message: "product not found",
				RayID:   rayID(c),
			})
		case errors.Is(err, domain.ErrMissingName),
			errors.Is(err, domain.ErrInvalidPrice),
			errors.Is(err, domain.ErrInvalidStock):
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		}
		logger.Get().Error("Failed to update product",
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}

	return c.JSON(product)
}
