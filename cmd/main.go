package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/config"
	"github.com/baytalmal/treasury-gobackend/internal/events"
	"github.com/baytalmal/treasury-gobackend/internal/handlers"
	"github.com/baytalmal/treasury-gobackend/internal/services"
	"github.com/baytalmal/treasury-gobackend/internal/storage/mongodb"
	"github.com/baytalmal/treasury-gobackend/internal/txn"
)

func newLogger(level string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Error loading .env: %s", err)
	}

	cfg := config.Load()
	if cfg.MongoURI == "" {
		log.Fatal("MONGOURI environment variable not set")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatalw("failed to connect to MongoDB", "error", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Errorw("error disconnecting from MongoDB", "error", err)
		}
	}()
	logger.Info("connected to MongoDB")

	store := mongodb.NewStorage(client.Database(cfg.Database))
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatalw("failed to create indexes", "error", err)
	}

	runner := txn.NewMongoRunner(client, logger)
	notifier := events.NewNotifier()

	paymentService := services.NewPaymentService(store, store, store, runner, notifier, logger)
	requestService := services.NewRequestService(store, store, paymentService, runner, notifier, logger)
	categoryService := services.NewCategoryService(store, notifier, logger)
	beneficiaryService := services.NewBeneficiaryService(store, logger)

	requestHandler := handlers.NewRequestHandler(requestService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)
	categoryHandler := handlers.NewCategoryHandler(categoryService, logger)
	beneficiaryHandler := handlers.NewBeneficiaryHandler(beneficiaryService, logger)

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/api/request", requestHandler.CreateRequest).Methods("POST")
	router.HandleFunc("/api/requests", requestHandler.ListRequests).Methods("GET")
	router.HandleFunc("/api/request/{requestID}", requestHandler.GetRequest).Methods("GET")
	router.HandleFunc("/api/request/{requestID}", requestHandler.AmendRequest).Methods("PATCH")
	router.HandleFunc("/api/request/{requestID}", requestHandler.DeleteRequest).Methods("DELETE")
	router.HandleFunc("/api/request/{requestID}/status", requestHandler.TransitionRequest).Methods("POST")

	router.HandleFunc("/api/payment", paymentHandler.CreatePayment).Methods("POST")
	router.HandleFunc("/api/payments", paymentHandler.ListPayments).Methods("GET")
	router.HandleFunc("/api/payment/{paymentID}", paymentHandler.GetPayment).Methods("GET")

	router.HandleFunc("/api/category", categoryHandler.CreateCategory).Methods("POST")
	router.HandleFunc("/api/categories", categoryHandler.ListCategories).Methods("GET")
	router.HandleFunc("/api/category/{categoryID}", categoryHandler.GetCategory).Methods("GET")

	router.HandleFunc("/api/beneficiary", beneficiaryHandler.CreateBeneficiary).Methods("POST")
	router.HandleFunc("/api/beneficiaries", beneficiaryHandler.ListBeneficiaries).Methods("GET")
	router.HandleFunc("/api/beneficiary/{beneficiaryID}", beneficiaryHandler.GetBeneficiary).Methods("GET")

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infow("server running", "addr", cfg.ServerAddr)
	logger.Fatal(server.ListenAndServe())
}
