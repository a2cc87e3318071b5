package main

import (
	"log"

	"silkshop/internal/core/cache"
	"silkshop/internal/core/config"
	"silkshop/internal/core/database"
	"silkshop/internal/core/logger"
	"silkshop/internal/core/server"
	cartadapter "silkshop/internal/features/cart/adapters"
	carthandler "silkshop/internal/features/cart/handler"
	cartservice "silkshop/internal/features/cart/service"
	catalogadapter "silkshop/internal/features/catalog/adapters"
	cataloghandler "silkshop/internal/features/catalog/handler"
	catalogservice "silkshop/internal/features/catalog/service"
	orderadapter "silkshop/internal/features/orders/adapters"
	orderhandler "silkshop/internal/features/orders/handler"
	orderservice "silkshop/internal/features/orders/service"
	"silkshop/internal/features/payments/adapters/payos"
	"silkshop/internal/features/payments/adapters/vnpay"
	paymenthandler "silkshop/internal/features/payments/handler"
	paymentports "silkshop/internal/features/payments/ports"

	"go.uber.org/zap"
)

// @title Silkshop API
// @version 1.0
// @description E-commerce backend: product catalog, shopping cart, order pipeline and online payment reconciliation (VNPay, PayOS).
// @contact.name API Support
// @contact.email support@silkshop.vn
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database); err != nil {
		l.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisCache, err := cache.NewRedisAdapter(cfg.RedisURL)
	if err != nil {
		l.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	// Catalog
	catalogSvc := catalogservice.NewCatalogService(catalogadapter.NewPostgresRepository(db))
	productHdl := cataloghandler.NewProductHandler(catalogSvc)

	// Cart
	cartSvc := cartservice.NewCartService(cartadapter.NewRedisCartRepository(redisCache), catalogSvc)
	cartHdl := carthandler.NewCartHandler(cartSvc)

	// Payment gateways
	gateways := []paymentports.Gateway{
		vnpay.New(cfg.Vnpay),
		payos.New(cfg.PayOS),
	}

	// Orders
	orderStore := orderadapter.NewPostgresStore(db)
	orderSvc := orderservice.NewOrderService(orderStore, gateways)
	orderHdl := orderhandler.NewOrderHandler(orderSvc)
	paymentHdl := paymenthandler.NewPaymentHandler(orderSvc, cfg.Vnpay.FrontendCallbackURL)

	srv := server.New(cfg)

	srv.App.Get("/api/products", productHdl.ListProducts)
	srv.App.Get("/api/products/:id", productHdl.GetProduct)
	srv.App.Post("/api/products", productHdl.CreateProduct)
	srv.App.Put("/api/products/:id", productHdl.UpdateProduct)

	srv.App.Get("/api/cart", cartHdl.GetCart)
	srv.App.Delete("/api/cart", cartHdl.ClearCart)
	srv.App.Post("/api/cart/items", cartHdl.AddItem)
	srv.App.Put("/api/cart/items/:productId", cartHdl.UpdateItemQuantity)
	srv.App.Delete("/api/cart/items/:productId", cartHdl.RemoveItem)

	srv.App.Post("/api/orders", orderHdl.CreateOrder)
	srv.App.Get("/api/orders/my-orders", orderHdl.GetMyOrders)
	srv.App.Get("/api/orders/:id", orderHdl.GetOrderByID)
	srv.App.Get("/api/orders", orderHdl.GetAllOrders)
	srv.App.Put("/api/orders/:id/status", orderHdl.UpdateOrderStatus)

	srv.App.Get("/api/payments/vnpay/callback", paymentHdl.VnpayCallback)
	srv.App.Post("/api/payments/payos/webhook", paymentHdl.PayOSWebhook)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
