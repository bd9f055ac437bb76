package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	database "github.com/sebuszqo/FinanceTracker/db"
	"github.com/sebuszqo/FinanceTracker/internal/auth"
	"github.com/sebuszqo/FinanceTracker/internal/config"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
	"github.com/sebuszqo/FinanceTracker/internal/finance/categorize"
	"github.com/sebuszqo/FinanceTracker/internal/finance/infrastructure"
	"github.com/sebuszqo/FinanceTracker/internal/finance/interfaces"
	"github.com/sebuszqo/FinanceTracker/internal/finance/scheduler"
	"github.com/sebuszqo/FinanceTracker/internal/logger"
	"github.com/sebuszqo/FinanceTracker/internal/metrics"
	"github.com/sebuszqo/FinanceTracker/internal/notify"
	"github.com/sebuszqo/FinanceTracker/internal/user"
)

const shutdownTimeout = 15 * time.Second

type Response struct {
	Message string `json:"message"`
}

// loggingMiddleware attaches a request-scoped logger to the context and logs each request.
func loggingMiddleware(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := log.With().Str("request_id", uuid.NewString()).Str("method", r.Method).Str("path", r.URL.Path).Logger()
		reqLog.Debug().Msg("Started request")

		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), reqLog)))

		reqLog.Info().Dur("duration", time.Since(start)).Msg("Completed request")
	})
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func readyHandler(dbService *database.DBService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := dbService.Health(r.Context())
		if health["status"] != "up" {
			interfaces.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": health["status"]})
			return
		}
		interfaces.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready", "database": health["status"]})
	}
}

// loadCategorizer uses the rule file at path, or the built-in rules when path is empty.
func loadCategorizer(path string) (*categorize.Categorizer, error) {
	rules, err := categorize.LoadRules(path)
	if err != nil {
		return nil, err
	}
	return categorize.New(rules), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info")
		bootLog.Fatal().Err(err).Msg("Missing configuration, update to start server")
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbService, err := database.NewDBService(ctx, cfg.DBConnectionString, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not initialize database")
	}
	defer dbService.Close()

	if err := infrastructure.Migrate(ctx, dbService.DB); err != nil {
		log.Fatal().Err(err).Msg("Could not migrate database")
	}

	categorizer, err := loadCategorizer(cfg.CategoryRulesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CategoryRulesPath).Msg("Could not load category rules")
	}

	m := metrics.New()
	store := infrastructure.NewPostgresStore(dbService.DB, log)
	userRepo := user.NewUserRepository(dbService.DB)

	var notifier application.Notifier = notify.LogNotifier{Log: log}
	if cfg.SMTP.Enabled() {
		emailNotifier, err := notify.NewEmailNotifier(cfg.SMTP, userRepo, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not initialize email notifier")
		}
		notifier = emailNotifier
	} else {
		log.Warn().Msg("EMAIL_ADDRESS or EMAIL_PASSWORD not set, budget alerts are only logged")
	}

	evaluator := application.NewBudgetAlertEvaluator(store, notifier, m, nil, log)
	dispatcher := application.NewAlertDispatcher(evaluator, cfg.AlertQueueSize, m, log)
	dispatcher.Start()

	reconciler := application.NewBalanceReconciler(m, log)
	accountService := application.NewAccountService(store, reconciler, nil, log)
	categoryService := application.NewCategoryService(store, log)
	transactionService := application.NewTransactionService(store, reconciler, categorizer, dispatcher, nil, log)
	importService := application.NewImportService(store, reconciler, categorizer, dispatcher, m, nil, cfg.MaxImportBytes, log)
	recurringService := application.NewRecurringService(store, nil, log)
	budgetService := application.NewBudgetService(store, dispatcher, nil, log)

	recurrence := scheduler.New(store, reconciler, dispatcher, m, nil, cfg.RecurrenceSchedule, log)
	if err := recurrence.Start(); err != nil {
		log.Fatal().Err(err).Msg("Scheduler didn't start, stopping the app ...")
	}

	handlers := interfaces.Handlers{
		Accounts:     interfaces.NewAccountHandler(accountService, interfaces.RespondJSON, interfaces.RespondError, log),
		Categories:   interfaces.NewCategoryHandler(categoryService, interfaces.RespondJSON, interfaces.RespondError, log),
		Transactions: interfaces.NewTransactionHandler(transactionService, interfaces.RespondJSON, interfaces.RespondError, log),
		Imports:      interfaces.NewImportHandler(importService, cfg.MaxImportBytes, interfaces.RespondJSON, interfaces.RespondError, log),
		Recurring:    interfaces.NewRecurringHandler(recurringService, recurrence, interfaces.RespondJSON, interfaces.RespondError, log),
		Budgets:      interfaces.NewBudgetHandler(budgetService, evaluator, interfaces.RespondJSON, interfaces.RespondError, log),
	}
	middleware := auth.NewMiddleware(auth.NewJWTManager(cfg.JWTSecret), userRepo, log)

	router := http.NewServeMux()
	router.Handle("GET /api/ready", readyHandler(dbService))
	router.Handle("GET /metrics", m.Handler())
	handlers.RegisterRoutes(router, middleware.JWTAccessTokenMiddleware())
	router.Handle("/", http.HandlerFunc(notFoundHandler))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(log, router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := recurrence.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Recurrence scheduler did not stop in time")
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Alert dispatcher did not drain in time")
	}
}
