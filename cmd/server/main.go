package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/jointvault/backend/docs"
	"github.com/jointvault/backend/internal/config"
	"github.com/jointvault/backend/internal/database"
	"github.com/jointvault/backend/internal/handlers"
	"github.com/jointvault/backend/internal/holdings"
	"github.com/jointvault/backend/internal/ledger"
	mW "github.com/jointvault/backend/internal/middleware"
	"github.com/jointvault/backend/internal/privatebank"
	"github.com/jointvault/backend/internal/services"
)

// @title JointVault Backend API
// @version 1.0
// @description API for joint account ledgers with quorum-gated withdrawals
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "JointVault Backend API"
	docs.SwaggerInfo.Description = "API for joint account ledgers with quorum-gated withdrawals"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize backing stores
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	workflowCfg := config.LoadWorkflowConfig()

	// The external-holdings collaborator. Every joint-account deposit debits
	// it and every executed withdrawal credits it back.
	externalHoldings := holdings.NewMemory()

	jointLedger := ledger.NewJointLedger(externalHoldings, workflowCfg.DefaultQuorum)
	bank := privatebank.New(workflowCfg.AuthorityID, workflowCfg.AuthorityPin, externalHoldings)

	var journalService *services.JournalService
	if workflowCfg.JournalEnabled {
		journalService = services.NewJournalService(db)
	}

	jointService := services.NewJointAccountService(jointLedger, journalService)
	bankService := services.NewPrivateBankService(bank, journalService)
	settlementService := services.NewSettlementService(jointLedger)
	authService := services.NewAuthService(db, redisClient)
	qrService := services.NewPaymentQRService(redisClient, workflowCfg)
	qrHandler := handlers.NewQRHandler(qrService)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/account", authService.GetAccount)

			// Joint account endpoints
			r.Post("/accounts", jointService.CreateAccount)
			r.Get("/accounts", jointService.ListAccounts)
			r.Post("/accounts/{accountId}/deposit", jointService.Deposit)
			r.Post("/accounts/{accountId}/withdrawals", jointService.RequestWithdraw)
			r.Post("/accounts/{accountId}/withdrawals/{requestId}/approve", jointService.ApproveWithdraw)
			r.Get("/accounts/{accountId}/withdrawals/{requestId}/approvals", jointService.GetApprovals)
			r.Post("/accounts/{accountId}/withdrawals/{requestId}/execute", jointService.ExecuteWithdraw)
			r.Get("/accounts/{accountId}/withdrawals/{requestId}/settlement", settlementService.ExportWithdrawal)

			// Private bank endpoints
			r.Post("/bank/customers", bankService.AddCustomer)
			r.Post("/bank/customers/request", bankService.RequestBeCustomer)
			r.Post("/bank/customers/{address}/approve", bankService.ApproveCustomer)
			r.Post("/bank/pin", bankService.ChangePin)
			r.Post("/bank/deposit", bankService.Deposit)
			r.Post("/bank/withdraw", bankService.Withdraw)
			r.Get("/bank/balance", bankService.GetBalance)

			// QR endpoints
			r.Post("/qr/generate", qrHandler.GenerateQR)
			r.Post("/qr/process", qrHandler.ProcessQR)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
