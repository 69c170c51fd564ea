package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"registration-gateway/internal/config"
	"registration-gateway/internal/gateway"
	"registration-gateway/internal/handlers"
	"registration-gateway/internal/kafka"
	"registration-gateway/internal/logger"
	"registration-gateway/internal/metrics"
	"registration-gateway/internal/middleware"
	"registration-gateway/internal/notify"
	rediswrap "registration-gateway/internal/redis"
	"registration-gateway/internal/services"
	"registration-gateway/internal/storage"
	"registration-gateway/internal/utils"
)

// Global logger instance
var log *logger.Logger

func main() {
	envErr := godotenv.Load()

	log = logger.NewLogger()
	defer log.Close()

	if envErr != nil {
		log.Warn("ENV", "No .env file loaded, using environment variables")
	}

	log.LogProcess("STARTUP", "Registration gateway starting up...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	log.Info("CONFIG", "Configuration loaded, payment provider: "+cfg.Gateway.Provider)

	gw, err := gateway.New(cfg, log)
	if err != nil {
		log.Fatal("GATEWAY", err.Error())
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal("STORAGE", err.Error())
	}
	log.LogDatabase("INIT", store.Name(), "Registration store initialized")

	log.LogProcess("KAFKA", "Initializing Kafka producer...")
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, !cfg.Kafka.Enabled, log)
	if err != nil {
		log.Fatal("KAFKA", "Failed to create Kafka producer: "+err.Error())
	}
	defer producer.Close()

	var ledger services.OrderLedger = services.NopLedger{}
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisLedger, err := rediswrap.Connect(ctx, cfg.Redis)
		cancel()
		if err != nil {
			log.Warn("REDIS", "Order ledger disabled: "+err.Error())
		} else {
			defer redisLedger.Close()
			ledger = redisLedger
			log.LogDatabase("INIT", "redis", "Order ledger connected at "+cfg.Redis.Addr)
		}
	}

	var mailer services.Mailer
	if cfg.SMTPEnabled() {
		mailer = notify.NewSMTPMailer(cfg.SMTP)
		log.LogProcess("MAIL", "Confirmation emails enabled via "+cfg.SMTP.Host)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := newApplication(cfg, dependencies{
		gateway:  gw,
		store:    store,
		ledger:   ledger,
		events:   producer,
		mailer:   mailer,
		registry: registry,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Kafka.Enabled {
		log.LogProcess("KAFKA", "Initializing webhook consumer...")
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, log)
		if err != nil {
			log.Fatal("KAFKA", "Failed to create Kafka consumer: "+err.Error())
		}
		defer consumer.Close()

		go func() {
			log.LogKafka("START", kafka.TopicWebhooks, "Starting webhook reconciliation consumer")
			if err := consumer.Consume(ctx, app.webhooks.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("KAFKA", "Consumer error: "+err.Error())
			}
		}()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on port "+cfg.Server.Port)
		log.Info("STARTUP", "Registration gateway running on http://localhost:"+cfg.Server.Port)
		log.Info("STARTUP", "Payment API endpoint: http://localhost:"+cfg.Server.Port+"/api/create-payment")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "Server failed to start: "+err.Error())
		}
	}()

	<-ctx.Done()
	log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("SHUTDOWN", "Server forced to shutdown: "+err.Error())
		return
	}

	log.Info("SHUTDOWN", "Registration gateway shutdown completed")
}

type dependencies struct {
	gateway  gateway.Gateway
	store    storage.Store
	ledger   services.OrderLedger
	events   services.EventPublisher
	mailer   services.Mailer
	verifier services.WebhookVerifier
	registry *prometheus.Registry
}

type application struct {
	router   *gin.Engine
	webhooks *services.WebhookService
}

func newApplication(cfg *config.Config, d dependencies) *application {
	m := metrics.New(d.registry)

	checkout := services.NewCheckoutService(services.CheckoutDeps{
		Gateway:  d.gateway,
		Pricing:  services.NewPricingResolver(cfg.Pricing),
		Fallback: services.NewFallbackLinker(cfg.Gateway.FallbackURL),
		Ledger:   d.ledger,
		Events:   d.events,
		Metrics:  m,
		Log:      log,
		Timeout:  cfg.Gateway.Timeout,
	})
	registrations := services.NewRegistrationService(d.store, d.events, d.mailer, m, log)
	webhooks := services.NewWebhookService(d.verifier, d.events, d.ledger, !cfg.Kafka.Enabled, m, log)
	log.LogProcess("SERVICE", "Services initialized")

	router := setupRouter(cfg, routes{
		payments:      handlers.NewPaymentHandler(checkout),
		registrations: handlers.NewRegistrationHandler(registrations),
		webhooks:      handlers.NewWebhookHandler(webhooks),
		pages: handlers.NewPageHandler(handlers.PageConfig{
			EventName:    cfg.Server.EventName,
			SupportPhone: cfg.Server.SupportPhone,
		}, log),
		metrics:  promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}),
		provider: d.gateway.Name(),
	})
	return &application{router: router, webhooks: webhooks}
}

type routes struct {
	payments      *handlers.PaymentHandler
	registrations *handlers.RegistrationHandler
	webhooks      *handlers.WebhookHandler
	pages         *handlers.PageHandler
	metrics       http.Handler
	provider      string
}

func setupRouter(cfg *config.Config, r routes) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.EnhancedLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders(log))
	router.Use(middleware.RateLimit(cfg.Server.RateLimitRPS, log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   "registration-gateway",
			"provider":  r.provider,
		})
	})
	router.GET("/metrics", gin.WrapH(r.metrics))

	api := router.Group("/api")
	{
		api.POST("/create-payment", r.payments.CreatePayment)
		api.GET("/payments/:receipt", r.payments.GetPaymentStatus)
		api.POST("/save-registration", r.registrations.SaveRegistration)
		api.GET("/registrations", r.registrations.ListRegistrations)
	}

	router.POST("/webhook", r.webhooks.Receive)
	router.GET("/payment-success", r.pages.PaymentSuccess)
	router.GET("/payment-failure", r.pages.PaymentFailure)

	router.NoRoute(staticFiles(cfg.Server.StaticDir))

	log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}

// staticFiles serves the site for GET and HEAD paths no route matched.
func staticFiles(dir string) gin.HandlerFunc {
	files := http.FileServer(gin.Dir(dir, false))
	return func(c *gin.Context) {
		method := c.Request.Method
		if (method != http.MethodGet && method != http.MethodHead) || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Not found", c.Request.URL.Path))
			return
		}
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))); err != nil {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Not found", c.Request.URL.Path))
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
