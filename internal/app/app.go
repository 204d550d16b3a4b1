package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
	healthcheck "github.com/airrecover/storefront/internal/health"
	httpsvc "github.com/airrecover/storefront/internal/service/http"
	"github.com/airrecover/storefront/internal/service/idempotency"
	"github.com/airrecover/storefront/internal/service/storefront"
	"github.com/airrecover/storefront/internal/version"
)

// Run поднимает публичный HTTP-сервер витрины и служебный сервер метрик
// и работает до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	deps := NewDependencies(cfg, logger)
	defer deps.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newStorefrontHandler(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, newHealthHandler(deps))

	sweeper := idempotency.NewSweeper(deps.WebhookEvents, idempotency.WithLogger(logger.WithField("worker", "webhook-dedup")))
	go sweeper.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"addr":       cfg.Addr,
			"public_url": cfg.PublicURL,
			"provider":   cfg.PaymentProvider,
		}).Info("storefront listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTPWithTimeout(srv, logger, cfg.ShutdownTimeout)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newStorefrontHandler связывает сервисы витрины с gin-роутером.
func newStorefrontHandler(cfg Config, deps *Dependencies) http.Handler {
	provider := cfg.PaymentProvider
	if deps.Gateway != nil {
		provider = deps.Gateway.Name()
	}

	checkout := storefront.NewCheckoutService(deps.Gateway, domain.DefaultPricing(), cfg.PublicURL,
		deps.Metrics, deps.Logger.WithField("service", "checkout"))
	contact := storefront.NewContactService(deps.Mailer, cfg.MailFrom, cfg.ContactReceiverEmail,
		deps.Metrics, deps.Logger.WithField("service", "contact"))
	webhooks := storefront.NewWebhookDispatcher(provider, deps.Verifier, deps.Publisher,
		deps.Metrics, deps.Logger.WithField("service", "webhook"),
		storefront.WithDeduplication(deps.WebhookEvents, cfg.WebhookDedupTTL))

	server := httpsvc.NewServer(httpsvc.Deps{
		Checkout:        checkout,
		Contact:         contact,
		Webhooks:        webhooks,
		Metrics:         deps.Metrics,
		Logger:          deps.Logger.WithField("layer", "http"),
		PublicDir:       cfg.PublicDir,
		SignatureHeader: deps.SignatureHeader,
	})
	return server.Handler()
}

// newHealthHandler регистрирует проверки: без платёжного провайдера витрина не готова,
// почта и Kafka только понижают статус до degraded.
func newHealthHandler(deps *Dependencies) *healthcheck.Handler {
	handler := healthcheck.NewHandler(version.GetVersion())
	handler.RegisterChecker("payment", healthcheck.NewSimpleChecker("payment", deps.PaymentReady))
	handler.RegisterChecker("mail", healthcheck.NewOptionalChecker("mail", deps.MailReady))
	handler.RegisterChecker("kafka", healthcheck.NewOptionalChecker("kafka", deps.KafkaReady))
	return handler
}

// startMetricsServer запускает служебный HTTP-сервер: /metrics и health checks.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	shutdownHTTPWithTimeout(srv, logger, 5*time.Second)
}

func shutdownHTTPWithTimeout(srv *http.Server, logger *log.Entry, timeout time.Duration) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).WithField("addr", srv.Addr).Warn("http shutdown with error")
	}
}
