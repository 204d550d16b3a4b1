package httpsvc

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/airrecover/storefront/internal/domain"
)

// maxWebhookBody ограничивает тело вебхука; события Stripe заметно меньше.
const maxWebhookBody = 512 << 10

func (s *Server) handleCreatePayment(c *gin.Context) {
	logger := requestLogger(c, s.logger)

	values, err := formValues(c)
	if err != nil {
		// Неразборчивое тело трактуется как пустое: qty=1, method=card.
		logger.WithError(err).Debug("create-payment body ignored")
		values = map[string]any{}
	}

	if s.deps.Checkout == nil {
		c.JSON(http.StatusInternalServerError, domain.CheckoutResponse{Error: domain.ErrPaymentFailed.Error()})
		return
	}

	session, err := s.deps.Checkout.Create(c.Request.Context(), parseQuantity(values["qty"]), stringValue(values["method"]))
	if err != nil {
		c.JSON(http.StatusInternalServerError, domain.CheckoutResponse{Error: domain.ErrPaymentFailed.Error()})
		return
	}

	c.JSON(http.StatusOK, domain.CheckoutResponse{CheckoutURL: session.URL})
}

func (s *Server) handleContact(c *gin.Context) {
	values, err := formValues(c)
	if err != nil {
		values = map[string]any{}
	}

	msg := domain.ContactMessage{
		Name:    stringValue(values["name"]),
		Email:   stringValue(values["email"]),
		Order:   stringValue(values["order"]),
		Message: stringValue(values["message"]),
	}

	if s.deps.Contact == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.ErrMailNotConfigured.Error()})
		return
	}

	if err := s.deps.Contact.Send(c.Request.Context(), msg); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrMissingFields) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": domain.ContactErrorCode(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleWebhook(c *gin.Context) {
	logger := requestLogger(c, s.logger)

	if s.deps.Webhooks == nil {
		c.String(http.StatusOK, domain.ErrWebhookNotConfigured.Error())
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.WithError(err).Warn("failed to read webhook body")
		c.String(http.StatusBadRequest, domain.ErrInvalidSignature.Error())
		return
	}

	_, err = s.deps.Webhooks.Dispatch(c.Request.Context(), domain.WebhookRequest{
		Payload:     payload,
		Signature:   c.GetHeader(s.deps.SignatureHeader),
		ContentType: c.ContentType(),
	})
	switch {
	case errors.Is(err, domain.ErrWebhookNotConfigured):
		c.String(http.StatusOK, domain.ErrWebhookNotConfigured.Error())
	case err != nil:
		c.String(http.StatusBadRequest, domain.ErrInvalidSignature.Error())
	default:
		c.String(http.StatusOK, "ok")
	}
}
