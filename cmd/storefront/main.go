package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/app"
	"github.com/airrecover/storefront/internal/version"
)

// envFileVar задаёт путь к .env-файлу; по умолчанию .env в рабочем каталоге.
const envFileVar = "STOREFRONT_ENV_FILE"

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level, format string) {
	log.SetFormatter(newFormatter(format))

	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)

	if parsed < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

func newFormatter(format string) log.Formatter {
	if strings.EqualFold(format, "json") {
		return &log.JSONFormatter{}
	}
	return &log.TextFormatter{FullTimestamp: true}
}

func envFile() string {
	if path := os.Getenv(envFileVar); path != "" {
		return path
	}
	return ".env"
}

func main() {
	cfg, err := app.LoadConfig(envFile())
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	setupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"addr":         cfg.Addr,
		"metrics_addr": cfg.MetricsAddr,
		"version":      version.GetVersion(),
	}).Info("запускаем storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("storefront остановлен")
}
