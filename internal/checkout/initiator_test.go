package checkout_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/airrecover/storefront/internal/checkout"
	"github.com/airrecover/storefront/internal/domain"
	"github.com/airrecover/storefront/internal/version"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

// recordingShop имитирует POST /create-payment и запоминает тела запросов.
type recordingShop struct {
	mu       sync.Mutex
	status   int
	body     string
	requests []map[string]any
	ids      []string
	agents   []string
}

func (s *recordingShop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != checkout.CreatePaymentPath || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)

	s.mu.Lock()
	s.requests = append(s.requests, payload)
	s.ids = append(s.ids, r.Header.Get(checkout.HeaderRequestID))
	s.agents = append(s.agents, r.Header.Get("User-Agent"))
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(s.status)
	_, _ = w.Write([]byte(s.body))
}

func (s *recordingShop) Requests() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.requests...)
}

func (s *recordingShop) Agents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.agents...)
}

func (s *recordingShop) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func newShop(t *testing.T, status int, body string) (*recordingShop, *checkout.Initiator) {
	t.Helper()
	shop := &recordingShop{status: status, body: body}
	srv := httptest.NewServer(shop)
	t.Cleanup(srv.Close)
	return shop, checkout.NewInitiator(srv.URL+"/", checkout.WithHTTPClient(srv.Client()), checkout.WithInitiatorLogger(loggerForTests()))
}

func TestInitiator_StartSuccess(t *testing.T) {
	shop, initiator := newShop(t, http.StatusOK, `{"checkoutUrl":"https://checkout.stripe.com/c/pay/cs_test_1"}`)
	cart := domain.DefaultPricing().Quote(3)

	url, err := initiator.Start(context.Background(), "twint", cart)
	require.NoError(t, err)
	require.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", url)

	require.Len(t, shop.Requests(), 1)
	require.Equal(t, []string{version.UserAgent("checkout")}, shop.Agents())
	require.Equal(t, map[string]any{"qty": float64(3), "method": "twint"}, shop.Requests()[0],
		"only qty and method are sent, never client-computed totals")
	require.NotEmpty(t, shop.IDs()[0])
}

func TestInitiator_DefaultsToCard(t *testing.T) {
	shop, initiator := newShop(t, http.StatusOK, `{"checkoutUrl":"https://pay.example/1"}`)

	_, err := initiator.Start(context.Background(), "", domain.DefaultCartState())
	require.NoError(t, err)
	require.Equal(t, "card", shop.Requests()[0]["method"])
}

func TestInitiator_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"payment_failed"}`},
		{name: "non-2xx with url", status: http.StatusBadGateway, body: `{"checkoutUrl":"https://pay.example/1"}`},
		{name: "malformed json", status: http.StatusOK, body: `<html>oops`},
		{name: "empty object", status: http.StatusOK, body: `{}`},
		{name: "empty url", status: http.StatusOK, body: `{"checkoutUrl":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, initiator := newShop(t, tt.status, tt.body)

			url, err := initiator.Start(context.Background(), "card", domain.DefaultCartState())
			require.ErrorIs(t, err, domain.ErrPaymentFailed)
			require.Empty(t, url)
		})
	}
}

func TestInitiator_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	initiator := checkout.NewInitiator(srv.URL)
	_, err := initiator.Start(context.Background(), "card", domain.DefaultCartState())
	require.ErrorIs(t, err, domain.ErrPaymentFailed)
}

func TestInitiator_EachCallCreatesNewSession(t *testing.T) {
	shop, initiator := newShop(t, http.StatusOK, `{"checkoutUrl":"https://pay.example/1"}`)

	for i := 0; i < 3; i++ {
		_, err := initiator.Start(context.Background(), "card", domain.DefaultCartState())
		require.NoError(t, err)
	}
	require.Len(t, shop.Requests(), 3)
	require.NotEqual(t, shop.IDs()[0], shop.IDs()[1])
}
