package identity

import (
	"crypto/x509"
	"fmt"
)

// decodeCertificates parses the raw DER-encoded leaf and intermediate
// certificates returned by a Certify RPC (spec.md §6). Parsing itself is
// PKI plumbing out of scope for this module's core logic, but the daemon
// still needs a concrete *x509.Certificate to hand to TrustAnchors.
func decodeCertificates(leafDER []byte, intermediateDERs [][]byte) (*x509.Certificate, []*x509.Certificate, error) {
	leaf, err := x509.ParseCertificate(leafDER)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: failed to parse leaf certificate: %w", err)
	}

	chain := make([]*x509.Certificate, 0, len(intermediateDERs))
	for i, der := range intermediateDERs {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, nil, fmt.Errorf("identity: failed to parse intermediate certificate %d: %w", i, err)
		}
		chain = append(chain, cert)
	}
	return leaf, chain, nil
}
