package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airrecover/storefront/internal/domain"
)

func newMollieServer(t *testing.T, handler http.HandlerFunc) *MollieGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewMollieGateway("test_key", nil)
	g.APIBaseURL = srv.URL
	g.HTTPClient = srv.Client()
	return g
}

func TestMollieGateway_CreateCheckoutSession(t *testing.T) {
	var got molliePaymentRequest
	gateway := newMollieServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer test_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"tr_1","status":"open","_links":{"checkout":{"href":"https://www.mollie.com/checkout/tr_1"}}}`))
	})

	params := checkoutParams(1, domain.PaymentMethodCard)
	params.WebhookURL = "https://airrecover.ch/webhook"
	session, err := gateway.CreateCheckoutSession(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "tr_1", session.ID)
	assert.Equal(t, "https://www.mollie.com/checkout/tr_1", session.URL)

	assert.Equal(t, mollieAmount{Currency: "CHF", Value: "9.90"}, got.Amount)
	assert.Equal(t, "creditcard", got.Method)
	assert.Equal(t, "https://airrecover.ch/thankyou.html?ref=ref-1", got.RedirectURL)
	assert.Equal(t, "https://airrecover.ch/webhook", got.WebhookURL)
	assert.Equal(t, "1", got.Metadata["qty"])
	assert.Equal(t, "card", got.Metadata["selected_method"])
}

func TestMollieGateway_CreateCheckoutSessionErrors(t *testing.T) {
	gateway := newMollieServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":422,"title":"Unprocessable Entity","detail":"The amount is lower than the minimum"}`))
	})
	_, err := gateway.CreateCheckoutSession(context.Background(), checkoutParams(1, domain.PaymentMethodTwint))
	require.Error(t, err)

	gateway = newMollieServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"tr_2","status":"open"}`))
	})
	_, err = gateway.CreateCheckoutSession(context.Background(), checkoutParams(1, domain.PaymentMethodTwint))
	require.Error(t, err, "payment without checkout link must fail")
}

func TestMollieGateway_VerifyWebhook(t *testing.T) {
	gateway := newMollieServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments/tr_paid":
			_, _ = w.Write([]byte(`{"id":"tr_paid","status":"paid","amount":{"currency":"CHF","value":"11.90"},"metadata":{"qty":"2","selected_method":"twint"}}`))
		case "/payments/tr_open":
			_, _ = w.Write([]byte(`{"id":"tr_open","status":"open","amount":{"currency":"CHF","value":"9.90"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	event, err := gateway.VerifyWebhook(context.Background(), domain.WebhookRequest{Payload: []byte("id=tr_paid")})
	require.NoError(t, err)
	assert.True(t, event.Completed())
	assert.Equal(t, 2, event.Qty)
	assert.Equal(t, "twint", event.Method)
	assert.Equal(t, int64(1190), event.AmountTotalMinor)

	event, err = gateway.VerifyWebhook(context.Background(), domain.WebhookRequest{Payload: []byte("id=tr_open")})
	require.NoError(t, err)
	assert.False(t, event.Completed())
	assert.Equal(t, "payment.open", event.ProviderType)

	_, err = gateway.VerifyWebhook(context.Background(), domain.WebhookRequest{Payload: []byte("id=tr_forged")})
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = gateway.VerifyWebhook(context.Background(), domain.WebhookRequest{Payload: []byte("")})
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestMollieGateway_VerifyWebhookNotConfigured(t *testing.T) {
	gateway := NewMollieGateway("", nil)
	_, err := gateway.VerifyWebhook(context.Background(), domain.WebhookRequest{Payload: []byte("id=tr_1")})
	require.ErrorIs(t, err, domain.ErrWebhookNotConfigured)
}

func TestParseMollieAmount(t *testing.T) {
	tests := map[string]int64{"9.90": 990, "11.9": 1190, "5": 500, "0.05": 5}
	for in, want := range tests {
		got, err := parseMollieAmount(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
