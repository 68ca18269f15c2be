package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/maximefrech68-hue/monthe/internal/cart"
	"github.com/maximefrech68-hue/monthe/internal/catalog"
	"github.com/maximefrech68-hue/monthe/internal/checkout"
	"github.com/maximefrech68-hue/monthe/internal/gateway"
	h "github.com/maximefrech68-hue/monthe/internal/http"
	"github.com/maximefrech68-hue/monthe/internal/payment"
	"github.com/maximefrech68-hue/monthe/internal/storage"
)

type Config struct {
	HTTPPort        string
	RedisAddr       string
	CatalogCSVURL   string
	PaymentEndpoint string
	GatewayEndpoint string
	CatalogTTL      time.Duration
	StagedOrderTTL  time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		CatalogCSVURL:   getEnv("CATALOG_CSV_URL", ""),
		PaymentEndpoint: getEnv("PAYMENT_SESSION_URL", ""),
		GatewayEndpoint: getEnv("GATEWAY_URL", ""),
		CatalogTTL:      2 * time.Minute,
		StagedOrderTTL:  48 * time.Hour,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	if cfg.CatalogCSVURL == "" || cfg.PaymentEndpoint == "" || cfg.GatewayEndpoint == "" {
		log.Fatal("CATALOG_CSV_URL, PAYMENT_SESSION_URL and GATEWAY_URL must be set")
	}

	var store storage.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		store = storage.NewRedisStore(client)
		log.Printf("using redis session store at %s", cfg.RedisAddr)
	} else {
		store = storage.NewMemoryStore()
		log.Println("REDIS_ADDR not set, using in-memory session store")
	}

	provider := catalog.NewSheetClient(cfg.CatalogCSVURL, nil, cfg.CatalogTTL)
	payments := payment.NewClient(cfg.PaymentEndpoint, nil)
	gw := gateway.NewClient(cfg.GatewayEndpoint, nil)

	carts := cart.NewService(store, provider)
	checkouts := checkout.NewService(store, provider, carts, payments, gw, cfg.StagedOrderTTL)

	productHandler := h.NewProductHandler(provider, cfg.RequestTimeout)
	cartHandler := h.NewCartHandler(carts, provider, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(checkouts, cfg.RequestTimeout)
	adminHandler := h.NewAdminHandler(gw, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.SessionMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", productHandler.List)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.ChangeQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Begin)
			r.Get("/return", checkoutHandler.Return)
			r.Post("/retry", checkoutHandler.Retry)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Put("/stock/{product_id}", adminHandler.UpdateStock)
			r.Delete("/orders/{order_id}", adminHandler.DeleteOrder)
			r.Post("/products", adminHandler.AddProduct)
			r.Put("/products/{product_id}", adminHandler.UpdateProduct)
			r.Delete("/products/{product_id}", adminHandler.DeleteProduct)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
