package mail

import (
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"os"
	"syscall"

	gomail "gopkg.in/mail.v2"

	"github.com/airrecover/storefront/internal/domain"
)

// SMTP-коды отказа в аутентификации (RFC 4954).
var authFailureCodes = map[int]struct{}{
	530: {},
	534: {},
	535: {},
	538: {},
}

var networkErrnos = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.EHOSTUNREACH,
	syscall.ENETUNREACH,
	syscall.ETIMEDOUT,
}

// classifySMTPError сводит ошибку транспорта к одной из ошибок domain.ErrMail*.
func classifySMTPError(err error) error {
	if err == nil {
		return nil
	}

	cause := err
	var sendErr *gomail.SendError
	if errors.As(err, &sendErr) && sendErr.Cause != nil {
		cause = sendErr.Cause
	}

	var protoErr *textproto.Error
	if errors.As(cause, &protoErr) {
		if _, ok := authFailureCodes[protoErr.Code]; ok {
			return fmt.Errorf("%w: %v", domain.ErrMailAuth, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrMailSend, err)
	}

	if isNetworkError(cause) {
		return fmt.Errorf("%w: %v", domain.ErrMailNetwork, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrMailSend, err)
}

func isNetworkError(err error) bool {
	for _, errno := range networkErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
