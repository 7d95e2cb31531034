package actual

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
)

// Failure kinds surfaced to callers. The session cache wraps these without
// flattening them, so errors.Is still reaches the sentinel.
var (
	// ErrAuth means the server rejected the password or token.
	ErrAuth = errors.New("authentication rejected")
	// ErrTLS means the TLS handshake with the server failed.
	ErrTLS = errors.New("tls verification failed")
	// ErrNetwork means the server could not be reached.
	ErrNetwork = errors.New("server unreachable")
	// ErrUnknownFile means the configured budget file does not exist on the server.
	ErrUnknownFile = errors.New("budget file not found on server")
	// ErrInvalidFile means the downloaded budget file could not be read
	// (bad archive, failed decryption, missing encryption password).
	ErrInvalidFile = errors.New("budget file is invalid")
	// ErrValidation means the server stopped accepting a previously issued session.
	ErrValidation = errors.New("session not validated")
	// ErrNotFound means a named account, category, or transaction does not
	// exist in the budget file.
	ErrNotFound = errors.New("not found")
)

// classifyTransport maps a transport-level error onto ErrTLS or ErrNetwork.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if isTLSError(err) {
		return fmt.Errorf("%w: %v", ErrTLS, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return err
}

func isTLSError(err error) bool {
	var (
		recordErr     tls.RecordHeaderError
		certErr       *tls.CertificateVerificationError
		unknownAuth   x509.UnknownAuthorityError
		hostnameErr   x509.HostnameError
		certInvalid   x509.CertificateInvalidError
		systemRootErr x509.SystemRootsError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &certErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &certInvalid) ||
		errors.As(err, &systemRootErr)
}
