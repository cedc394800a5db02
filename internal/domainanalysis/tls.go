package domainanalysis

import (
	"crypto/tls"
	"errors"
	"net"
	"time"
)

// probeTLS dials the domain on :443 and reports whether a valid
// certificate chain was presented. It does not verify the leaf's
// expiry is far away, only that it is currently valid for the host,
// matching the spec's boolean ssl_valid signal. A certificate that fails
// verification reports (false, true); a connection that fails for any
// other reason reports ok=false, leaving the signal unknown.
func probeTLS(domain string, timeout time.Duration) (valid bool, ok bool) {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", domain+":443", &tls.Config{ServerName: domain})
	if err != nil {
		var certErr *tls.CertificateVerificationError
		if errors.As(err, &certErr) {
			return false, true
		}
		return false, false
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return false, true
	}
	now := time.Now()
	leaf := certs[0]
	return now.Before(leaf.NotAfter) && now.After(leaf.NotBefore), true
}
