// Package daemonidentity adapts the Identity Daemon's Watch<Option<CrtKey>>
// onto ports.IdentityProvider, so the rest of the SDK can consume a
// Certify-RPC-backed identity exactly the way it consumes the SPIFFE
// Workload API client in internal/adapters/secondary/spiffe.
package daemonidentity

import (
	"context"
	"crypto/x509"
	"fmt"

	"github.com/sufield/ephemos/internal/core/domain"
	"github.com/sufield/ephemos/internal/core/ports"
	"github.com/sufield/ephemos/internal/identity"
	"github.com/sufield/ephemos/internal/watch"
)

// anchorsProvider is implemented by identity.TrustAnchors backends that can
// enumerate their roots, such as identity.CertPoolTrustAnchors. Backends
// that can only verify (not enumerate) leave GetTrustBundle unsupported.
type anchorsProvider interface {
	Anchors() []*x509.Certificate
}

// Provider implements ports.IdentityProvider by reading the latest
// certificate out of an identity.Local's watch. It never calls the
// Certify RPC itself — that's the Daemon's job, run independently by the
// caller (see NewProvider's doc comment).
type Provider struct {
	local *identity.Local
	recv  *watch.Receiver[identity.Option]
}

// NewProvider wraps local. Callers are responsible for starting local's
// paired Daemon (typically `go daemon.Run(ctx)`) before the first
// GetCertificate call, or GetCertificate returns an error until the first
// certificate is published.
func NewProvider(local *identity.Local) *Provider {
	return &Provider{
		local: local,
		recv:  local.CrtKey().Subscribe(),
	}
}

// GetServiceIdentity implements ports.IdentityProvider. The daemon's Name is
// used for both the service name and trust domain: unlike the SPIFFE
// Workload API, the Certify RPC's identity string does not carry a
// separate trust domain component.
func (p *Provider) GetServiceIdentity(ctx context.Context) (*domain.ServiceIdentity, error) {
	name := p.local.Name().String()
	return domain.NewServiceIdentityValidated(name, name)
}

// GetCertificate implements ports.IdentityProvider.
func (p *Provider) GetCertificate(ctx context.Context) (*domain.Certificate, error) {
	ck := p.recv.Get()
	if ck == nil {
		return nil, fmt.Errorf("daemonidentity: no certificate published yet")
	}
	return domain.NewCertificateWithValidation(ck.Crt.Leaf, ck.Key.Signer, ck.Crt.Intermediates, false)
}

// GetTrustBundle implements ports.IdentityProvider.
func (p *Provider) GetTrustBundle(ctx context.Context) (*domain.TrustBundle, error) {
	ap, ok := p.local.TrustAnchors().(anchorsProvider)
	if !ok {
		return nil, fmt.Errorf("daemonidentity: trust anchors backend does not expose enumerable roots")
	}
	return domain.NewTrustBundleWithValidation(ap.Anchors(), false)
}

// Close releases this provider's watch subscription. The daemon's own
// lifecycle is owned by whoever calls Run(ctx), not by this provider.
func (p *Provider) Close() error {
	p.recv.Release()
	return nil
}

var _ ports.IdentityProvider = (*Provider)(nil)
