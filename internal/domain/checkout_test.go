package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		raw  string
		want PaymentMethod
	}{
		{raw: "", want: PaymentMethodCard},
		{raw: "card", want: PaymentMethodCard},
		{raw: "PayPal", want: PaymentMethodPayPal},
		{raw: " twint ", want: PaymentMethodTwint},
		{raw: "bitcoin", want: PaymentMethodCard},
	}

	for _, tt := range tests {
		if got := ParsePaymentMethod(tt.raw); got != tt.want {
			t.Errorf("ParsePaymentMethod(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestLineItemsFor(t *testing.T) {
	pricing := DefaultPricing()

	single := LineItemsFor(pricing, pricing.Quote(1))
	if len(single) != 2 {
		t.Fatalf("expected product and shipping items, got %d", len(single))
	}
	if single[0].AmountMinor() != 595 || single[1].AmountMinor() != 395 {
		t.Fatalf("unexpected amounts: %d, %d", single[0].AmountMinor(), single[1].AmountMinor())
	}
	if single[1].Name != ShippingItemName {
		t.Fatalf("unexpected shipping name %q", single[1].Name)
	}

	multi := LineItemsFor(pricing, pricing.Quote(3))
	if len(multi) != 1 {
		t.Fatalf("expected only product item for free shipping, got %d", len(multi))
	}
	if multi[0].Quantity != 3 || multi[0].AmountMinor() != 1785 {
		t.Fatalf("unexpected product line: qty=%d amount=%d", multi[0].Quantity, multi[0].AmountMinor())
	}
}

func TestContactMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     ContactMessage
		wantErr bool
	}{
		{name: "complete", msg: ContactMessage{Name: "Anna", Email: "anna@example.ch", Message: "Hallo"}},
		{name: "order optional", msg: ContactMessage{Name: "Anna", Email: "a@b.ch", Order: "", Message: "x"}},
		{name: "blank name", msg: ContactMessage{Name: "   ", Email: "a@b.ch", Message: "x"}, wantErr: true},
		{name: "missing email", msg: ContactMessage{Name: "Anna", Message: "x"}, wantErr: true},
		{name: "missing message", msg: ContactMessage{Name: "Anna", Email: "a@b.ch", Message: "\n"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Normalize().Validate()
			if tt.wantErr && !errors.Is(err, ErrMissingFields) {
				t.Fatalf("expected ErrMissingFields, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestContactMessage_Bodies(t *testing.T) {
	msg := ContactMessage{Name: "Anna <b>", Email: "anna@example.ch", Message: "Zeile 1\r\nZeile 2"}

	text := msg.TextBody()
	if !strings.Contains(text, "Bestellnummer: -") {
		t.Errorf("text body should default order to '-': %q", text)
	}

	htmlBody := msg.HTMLBody()
	if !strings.Contains(htmlBody, "Zeile 1<br>Zeile 2") {
		t.Errorf("html body should convert newlines: %q", htmlBody)
	}
	if strings.Contains(htmlBody, "<b>") {
		t.Errorf("html body must escape user input: %q", htmlBody)
	}
}

func TestContactMessage_ToMail(t *testing.T) {
	msg := ContactMessage{Name: "Anna", Email: "anna@example.ch", Order: "A-17", Message: "Hallo"}
	mail := msg.ToMail("shop@airrecover.ch", "owner@airrecover.ch")

	if mail.FromName != "AirRecover Kontakt" || mail.From != "shop@airrecover.ch" {
		t.Errorf("unexpected sender %q <%s>", mail.FromName, mail.From)
	}
	if mail.ReplyTo != "anna@example.ch" {
		t.Errorf("reply-to should be the form author, got %s", mail.ReplyTo)
	}
	if mail.Subject != ContactSubject || !strings.Contains(mail.Text, "Bestellnummer: A-17") {
		t.Errorf("unexpected mail %+v", mail)
	}
}

func TestContactErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: ErrMissingFields, want: "missing_fields"},
		{err: ErrMailNotConfigured, want: "smtp_not_configured"},
		{err: errors.Join(ErrMailAuth, errors.New("535")), want: "smtp_auth_failed"},
		{err: ErrMailNetwork, want: "smtp_network_error"},
		{err: errors.New("boom"), want: "send_failed"},
	}

	for _, tt := range tests {
		if got := ContactErrorCode(tt.err); got != tt.want {
			t.Errorf("ContactErrorCode(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
