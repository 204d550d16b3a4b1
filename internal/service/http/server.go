package httpsvc

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/metrics"
	"github.com/airrecover/storefront/internal/service/storefront"
)

// Маршруты API витрины.
const (
	RouteCreatePayment = "/create-payment"
	RouteContact       = "/contact"
	RouteWebhook       = "/webhook"
)

// Deps — сервисы, которые обслуживает HTTP-слой.
type Deps struct {
	Checkout storefront.CheckoutService
	Contact  storefront.ContactService
	Webhooks storefront.WebhookDispatcher
	Metrics  *metrics.StorefrontMetrics
	Logger   *log.Entry
	// PublicDir содержит статические страницы магазина; пустое значение отключает раздачу.
	PublicDir string
	// SignatureHeader содержит подпись вебхука провайдера.
	SignatureHeader string
}

// Server — gin-роутер публичного API.
type Server struct {
	router *gin.Engine
	deps   Deps
	logger *log.Entry
}

// NewServer собирает роутер: middleware, API-маршруты и статические страницы.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(logger, deps.Metrics))

	s := &Server{
		router: router,
		deps:   deps,
		logger: logger,
	}

	router.POST(RouteCreatePayment, s.handleCreatePayment)
	router.POST(RouteContact, s.handleContact)
	router.POST(RouteWebhook, s.handleWebhook)

	if deps.PublicDir != "" {
		files := http.FileServer(http.Dir(deps.PublicDir))
		router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}

	return s
}

// Handler возвращает http.Handler для http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}
