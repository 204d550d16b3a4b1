package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций для label "result".
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// StorefrontMetrics содержит метрики витрины: оплата, контактная форма, вебхуки, HTTP.
type StorefrontMetrics struct {
	// Создание checkout-сессий у провайдера
	checkoutSessions *prometheus.CounterVec
	checkoutDuration *prometheus.HistogramVec

	// Контактная форма, label result = код ответа (ok, smtp_auth_failed, ...)
	contactMessages *prometheus.CounterVec

	// Вебхуки провайдеров и публикация событий исполнения
	webhookEvents   *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec

	// HTTP API
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	inFlight     prometheus.Gauge
}

// NewStorefrontMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewStorefrontMetrics() *StorefrontMetrics {
	return NewStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStorefrontMetricsWithRegisterer регистрирует метрики в заданном registry.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		checkoutSessions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_sessions_total",
			Help: "Total number of checkout session creation attempts",
		}, []string{"provider", "method", "result"}),
		checkoutDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_session_duration_seconds",
			Help:    "Duration of checkout session creation at the payment provider",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"provider"}),
		contactMessages: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_contact_messages_total",
			Help: "Total number of contact form submissions by result code",
		}, []string{"transport", "result"}),
		webhookEvents: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_webhook_events_total",
			Help: "Total number of payment provider webhooks by outcome",
		}, []string{"provider", "outcome"}),
		eventsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_events_published_total",
			Help: "Total number of checkout completed events sent to the broker",
		}, []string{"result"}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests served",
		}, []string{"route", "method", "status"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_http_in_flight_requests",
			Help: "Number of HTTP requests currently being served",
		}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// RecordCheckoutSession учитывает попытку создания сессии и её длительность.
func (m *StorefrontMetrics) RecordCheckoutSession(provider, method string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.checkoutSessions.WithLabelValues(provider, method, resultLabel(err)).Inc()
	m.checkoutDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordContactMessage учитывает отправку контактной формы с кодом результата.
func (m *StorefrontMetrics) RecordContactMessage(transport, result string) {
	if m == nil {
		return
	}
	m.contactMessages.WithLabelValues(transport, result).Inc()
}

// RecordWebhook учитывает вебхук: outcome = completed | ignored | invalid_signature | not_configured.
func (m *StorefrontMetrics) RecordWebhook(provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(provider, outcome).Inc()
}

// RecordEventPublished учитывает публикацию события исполнения.
func (m *StorefrontMetrics) RecordEventPublished(err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(resultLabel(err)).Inc()
}

// RecordHTTPRequest учитывает обслуженный HTTP-запрос.
func (m *StorefrontMetrics) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, fmt.Sprintf("%d", status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// HTTPRequestStarted увеличивает число запросов в обработке.
func (m *StorefrontMetrics) HTTPRequestStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// HTTPRequestFinished уменьшает число запросов в обработке.
func (m *StorefrontMetrics) HTTPRequestFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
