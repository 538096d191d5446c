package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	apihttp "utility-billing/internal/api/http"
	"utility-billing/internal/audit"
	"utility-billing/internal/auth"
	billingapp "utility-billing/internal/billing/application"
	billingevents "utility-billing/internal/billing/infrastructure/events"
	billingrepo "utility-billing/internal/billing/infrastructure/postgres"
	billinginterfaces "utility-billing/internal/billing/interfaces"
	"utility-billing/internal/distribution"
	"utility-billing/internal/eventing"
	eventingrepo "utility-billing/internal/eventing/infrastructure/postgres"
	"utility-billing/internal/formula"
	"utility-billing/internal/observability/metrics"
	tariffapp "utility-billing/internal/tariff/application"
	tariffrepo "utility-billing/internal/tariff/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	billingCfg, err := billingapp.LoadConfig()
	if err != nil {
		logger.Fatalf("billing config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	invoiceRepo := billingrepo.NewInvoiceRepository(db)
	meteringRepo := billingrepo.NewMeteringRepository(db)
	propertyRepo := billingrepo.NewPropertyRepository(db)
	tariffRepo := tariffrepo.NewTariffRepository(db)
	invoiceChecker := auth.NewInvoiceChecker(invoiceRepo)

	resolver, err := tariffapp.NewResolver(tariffRepo, tariffapp.NewMemoryCache(), tariffapp.DefaultStrategies(), logger,
		tariffapp.WithResolverMetrics(metrics.BillingRecorder{}))
	if err != nil {
		logger.Fatalf("tariff resolver error: %v", err)
	}

	evaluator := formula.NewEvaluator()
	distributor, err := distribution.NewDistributor(evaluator, logger)
	if err != nil {
		logger.Fatalf("distributor error: %v", err)
	}

	ids := billingapp.RandomIDGenerator{}
	circulation, err := billingapp.NewCirculationService(
		propertyRepo,
		propertyRepo,
		distributor,
		distribution.ServiceConfiguration{Method: distribution.Method(cfg.CirculationMethod)},
		ids,
		logger,
	)
	if err != nil {
		logger.Fatalf("circulation service error: %v", err)
	}

	bus := eventing.NewInMemoryBus()
	processedStore := eventingrepo.NewProcessedStore(db)
	if err := billingevents.RegisterAuditConsumers(bus, auditRepo, processedStore); err != nil {
		logger.Fatalf("audit consumers error: %v", err)
	}

	billingService, err := billingapp.NewBillingService(
		meteringRepo,
		meteringRepo,
		meteringRepo,
		invoiceRepo,
		tariffRepo,
		resolver,
		ids,
		billingCfg,
		billingapp.WithCirculationCharger(circulation),
		billingapp.WithEventPublisher(billingevents.NewBusPublisher(bus)),
		billingapp.WithMetrics(metrics.BillingRecorder{}),
		billingapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("billing service error: %v", err)
	}
	batchRunner, err := billingapp.NewBatchRunner(billingService, billingCfg.BatchChunkSize, logger,
		billingapp.WithBatchMetrics(metrics.BillingRecorder{}))
	if err != nil {
		logger.Fatalf("batch runner error: %v", err)
	}

	invoiceHandler, err := billinginterfaces.NewInvoiceHandler(billingService, batchRunner, invoiceRepo, invoiceChecker, auditRepo)
	if err != nil {
		logger.Fatalf("invoice handler error: %v", err)
	}
	distributionHandler, err := billinginterfaces.NewDistributionHandler(distributor, auditRepo)
	if err != nil {
		logger.Fatalf("distribution handler error: %v", err)
	}
	readingHandler, err := billinginterfaces.NewReadingHandler(meteringRepo, ids)
	if err != nil {
		logger.Fatalf("reading handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewReadingIngestMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/ingest/readings", ingestAuth.Wrap(readingHandler))
	mux.Handle("/api/v1/invoices", apihttp.NewInvoicesHandler(db))
	mux.Handle("/api/v1/invoices/", invoiceHandler)
	mux.Handle("/api/v1/invoices/generate", invoiceHandler)
	mux.Handle("/api/v1/invoices/batch", invoiceHandler)
	mux.Handle("/api/v1/distributions/preview", distributionHandler)
	mux.Handle("/api/v1/exports/invoices.csv", apihttp.NewExportInvoicesCSVHandler(db))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	CirculationMethod string
	JWTSecret         string
	IngestSecret      string
	IngestSkewSeconds int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		CirculationMethod: getenvDefault("CIRCULATION_METHOD", "equal"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
