package mail

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

func newTestAPISender(t *testing.T, handler http.HandlerFunc) *APISender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewAPISender("re_test", nil)
	s.APIBaseURL = srv.URL
	s.HTTPClient = srv.Client()
	return s
}

func TestAPISender_Send(t *testing.T) {
	var got apiEmail
	sender := newTestAPISender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	})

	require.NoError(t, sender.Send(context.Background(), contactMail()))
	assert.Equal(t, `"AirRecover Kontakt" <shop@airrecover.ch>`, got.From)
	assert.Equal(t, []string{"owner@airrecover.ch"}, got.To)
	assert.Equal(t, "anna@example.ch", got.ReplyTo)
	assert.Contains(t, got.HTML, "Hallo<br>Welt")
}

func TestAPISender_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusUnauthorized, want: domain.ErrMailAuth},
		{status: http.StatusForbidden, want: domain.ErrMailAuth},
		{status: http.StatusBadGateway, want: domain.ErrMailNetwork},
		{status: http.StatusUnprocessableEntity, want: domain.ErrMailSend},
	}

	for _, tt := range tests {
		sender := newTestAPISender(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"name":"error","message":"nope"}`))
		})
		err := sender.Send(context.Background(), contactMail())
		require.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestAPISender_NetworkAndConfig(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sender := NewAPISender("re_test", nil)
	sender.APIBaseURL = url
	require.ErrorIs(t, sender.Send(context.Background(), contactMail()), domain.ErrMailNetwork)

	require.ErrorIs(t, NewAPISender("", nil).Send(context.Background(), contactMail()), domain.ErrMailNotConfigured)
}
