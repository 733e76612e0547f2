package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"syscall"

	"github.com/quietwire/linkcheck/internal/model"
)

// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
var ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

// errInvalidURL wraps request construction failures.
type errInvalidURL struct{ err error }

func (e *errInvalidURL) Error() string { return "invalid url: " + e.err.Error() }
func (e *errInvalidURL) Unwrap() error { return e.err }

// failureKind maps a transport error to the reason recorded in a finding.
func failureKind(err error) string {
	var (
		invalid   *errInvalidURL
		dnsErr    *net.DNSError
		certErr   *tls.CertificateVerificationError
		unknownCA x509.UnknownAuthorityError
		hostErr   x509.HostnameError
		invalidCt x509.CertificateInvalidError
		recordErr tls.RecordHeaderError
		alertErr  tls.AlertError
		netErr    net.Error
	)

	switch {
	case errors.As(err, &invalid):
		return model.ReasonInvalidURL
	case errors.Is(err, context.Canceled):
		return model.ReasonCanceled
	case errors.As(err, &dnsErr):
		return model.ReasonDNSError
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return model.ReasonTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return model.ReasonConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return model.ReasonConnectionReset
	case errors.As(err, &certErr),
		errors.As(err, &unknownCA),
		errors.As(err, &hostErr),
		errors.As(err, &invalidCt),
		errors.As(err, &recordErr),
		errors.As(err, &alertErr):
		return model.ReasonTLSError
	default:
		return model.ReasonTransportError
	}
}
