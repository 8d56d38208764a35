package identity

import (
	"crypto"
	"crypto/x509"
	"time"
)

// CSR is an opaque, already-encoded certificate signing request. Generating
// it is out of scope here (spec treats CSR generation as an external
// collaborator); the daemon only ever forwards it verbatim to Certify.
type CSR []byte

// Key is an opaque private key handle. It must implement crypto.Signer so a
// TLS stack can use it once it has been paired into a verified CrtKey.
type Key struct {
	Signer crypto.Signer
}

// Crt bundles a leaf certificate with its intermediate chain and the
// timestamp after which it is no longer valid. Name records which workload
// identity this certificate was issued for.
type Crt struct {
	Name          Name
	Leaf          *x509.Certificate
	Intermediates []*x509.Certificate
	Expiry        time.Time
}

// IsZero reports whether this Crt has never been populated.
func (c Crt) IsZero() bool { return c.Leaf == nil }

// CrtKey is a (Key, Crt) pair that TrustAnchors has verified together. It is
// the only certificate representation ever handed to consumers: there is no
// path to obtain a Key or Crt without going through verification.
type CrtKey struct {
	Key Key
	Crt Crt
}

// Expiry is the certificate's expiry timestamp, convenience accessor.
func (ck CrtKey) Expiry() time.Time { return ck.Crt.Expiry }

// TrustAnchors verifies that a Key and Crt are a valid, certifiable pair:
// the leaf chains to a configured root, the name matches, and the
// certificate has not expired. A successful call is the only way to
// produce a CrtKey.
type TrustAnchors interface {
	Certify(key Key, crt Crt) (CrtKey, error)
}

// CertPoolTrustAnchors verifies a Crt's chain against a fixed x509.CertPool
// of trusted roots. It is a minimal, dependency-free TrustAnchors suitable
// for tests and for deployments that provision trust roots directly rather
// than through a SPIRE bundle (see
// internal/adapters/secondary/verification.SpireIdentityVerifier for the
// SPIRE-backed production equivalent this mirrors).
type CertPoolTrustAnchors struct {
	Roots *x509.CertPool
	// RootCerts mirrors Roots in parsed form, for callers (e.g. a
	// TrustBundle exporter) that need to enumerate individual anchors
	// rather than just verify against the pool.
	RootCerts []*x509.Certificate
}

// Anchors returns the parsed root certificates backing this verifier.
func (t CertPoolTrustAnchors) Anchors() []*x509.Certificate {
	return t.RootCerts
}

// Certify verifies crt.Leaf chains to the configured roots (through any
// supplied intermediates), that it is within its validity window, and that
// it was actually issued to crt.Name — a cert that chains to a trusted root
// but was issued for a different workload is rejected, not accepted.
func (t CertPoolTrustAnchors) Certify(key Key, crt Crt) (CrtKey, error) {
	if crt.IsZero() {
		return CrtKey{}, errCertificateInvalid("certificate is empty")
	}
	if t.Roots == nil {
		return CrtKey{}, errCertificateInvalid("no trust roots configured")
	}
	if crt.Name.IsZero() {
		return CrtKey{}, errCertificateInvalid("no name to verify the certificate against")
	}

	intermediates := x509.NewCertPool()
	for _, ic := range crt.Intermediates {
		intermediates.AddCert(ic)
	}

	opts := x509.VerifyOptions{
		Roots:         t.Roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSName:       crt.Name.String(),
	}
	if _, err := crt.Leaf.Verify(opts); err != nil {
		return CrtKey{}, errCertificateInvalid("chain verification failed: " + err.Error())
	}

	return CrtKey{Key: key, Crt: crt}, nil
}

type certificateInvalidError struct{ msg string }

func errCertificateInvalid(msg string) error { return certificateInvalidError{msg: msg} }
func (e certificateInvalidError) Error() string {
	return "identity: certificate invalid: " + e.msg
}
