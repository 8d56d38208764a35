package identity

import (
	"context"
	"time"
)

// CertifyRequest is the wire-shape request described in spec.md §6. The
// actual transport (grpc.ClientConn, HTTP/2, etc.) is an external
// collaborator; this package only needs the request/response shape.
type CertifyRequest struct {
	Identity                  string
	Token                     []byte
	CertificateSigningRequest []byte
}

// CertifyResponse is the wire-shape response described in spec.md §6.
// ValidUntil is nil when the control plane did not return an expiry.
type CertifyResponse struct {
	LeafCertificate          []byte
	IntermediateCertificates [][]byte
	ValidUntil               *time.Time
}

// CertifyClient is the abstract unary RPC client to the Identity authority.
// Transport details (gRPC/HTTP2 framing, retries at the transport level)
// are explicitly out of scope per spec.md §1; callers supply any client
// that can make this one call.
type CertifyClient interface {
	Certify(ctx context.Context, req *CertifyRequest) (*CertifyResponse, error)
}

// UnaryCertifyFunc adapts a plain function to CertifyClient, mirroring how
// internal/adapters/secondary/transport/grpc_provider.go wraps a generated
// stub method behind a narrow port interface.
type UnaryCertifyFunc func(ctx context.Context, req *CertifyRequest) (*CertifyResponse, error)

// Certify implements CertifyClient.
func (f UnaryCertifyFunc) Certify(ctx context.Context, req *CertifyRequest) (*CertifyResponse, error) {
	return f(ctx, req)
}

// GRPCCertifyClient wraps a caller-supplied unary call function so the
// generated protobuf stub (out of scope for this module, see spec.md §1)
// can be plugged in without this package depending on a specific
// *-proxy-api package. Production wiring constructs Call from a
// google.golang.org/grpc.ClientConn and a generated Destination/Identity
// client, the same shape used by
// internal/adapters/secondary/transport.grpcTransportProvider.
type GRPCCertifyClient struct {
	Call func(ctx context.Context, req *CertifyRequest) (*CertifyResponse, error)
}

// Certify implements CertifyClient by delegating to Call.
func (g GRPCCertifyClient) Certify(ctx context.Context, req *CertifyRequest) (*CertifyResponse, error) {
	return g.Call(ctx, req)
}
