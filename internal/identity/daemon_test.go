package identity

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRefreshDelay(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		expiry     time.Time
		min, max   time.Duration
		wantApprox time.Duration
	}{
		{
			name:       "cold start, successful certify",
			expiry:     now.Add(3600 * time.Second),
			min:        10 * time.Second,
			max:        24 * time.Hour,
			wantApprox: 2520 * time.Second,
		},
		{
			name:       "short-lived cert below floor",
			expiry:     now.Add(5 * time.Second),
			min:        10 * time.Second,
			max:        24 * time.Hour,
			wantApprox: 10 * time.Second,
		},
		{
			name:       "over-long cert above ceiling",
			expiry:     now.Add(10 * time.Hour),
			min:        10 * time.Second,
			max:        60 * time.Second,
			wantApprox: 60 * time.Second,
		},
		{
			name:       "no prior expiry uses min_refresh",
			expiry:     time.Time{},
			min:        10 * time.Second,
			max:        24 * time.Hour,
			wantApprox: 10 * time.Second,
		},
		{
			name:       "expiry already in the past uses min_refresh",
			expiry:     now.Add(-time.Hour),
			min:        10 * time.Second,
			max:        24 * time.Hour,
			wantApprox: 10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeRefreshDelay(tt.expiry, now, tt.min, tt.max)
			assert.InDelta(t, tt.wantApprox.Seconds(), got.Seconds(), 1.0)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestDaemon_NextDelay_JitterStaysWithinBounds(t *testing.T) {
	cfg := validConfig(t)
	cfg.MinRefresh = 10 * time.Second
	cfg.MaxRefresh = 60 * time.Second
	cfg.Jitter = 0.5

	d := &Daemon{config: cfg, expiry: time.Now().Add(10 * time.Hour)}

	for i := 0; i < 200; i++ {
		got := d.nextDelay()
		assert.GreaterOrEqual(t, got, cfg.MinRefresh)
		assert.LessOrEqual(t, got, cfg.MaxRefresh)
	}
}

func TestConfig_ValidateInvariant(t *testing.T) {
	base := validConfig(t)

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, base.Validate())
	})

	t.Run("min greater than max is rejected", func(t *testing.T) {
		c := base
		c.MinRefresh = time.Hour
		c.MaxRefresh = time.Minute
		assert.Error(t, c.Validate())
	})

	t.Run("zero min is rejected", func(t *testing.T) {
		c := base
		c.MinRefresh = 0
		assert.Error(t, c.Validate())
	})

	t.Run("zero max is rejected", func(t *testing.T) {
		c := base
		c.MaxRefresh = 0
		assert.Error(t, c.Validate())
	})
}

func TestDaemon_CertifyWithMissingExpiry_LeavesWatchUnchanged(t *testing.T) {
	local, daemon, err := New(validConfig(t), UnaryCertifyFunc(func(ctx context.Context, req *CertifyRequest) (*CertifyResponse, error) {
		return &CertifyResponse{ValidUntil: nil}, nil
	}), nil)
	require.NoError(t, err)

	recv := local.CrtKey().Subscribe()
	defer recv.Release()

	resp, err := daemon.certify(context.Background())
	require.NoError(t, err)

	terminate := daemon.onResponse(resp)
	assert.False(t, terminate)
	assert.Nil(t, recv.Get())
}

func TestDaemon_SuccessfulCertify_PublishesCrtKey(t *testing.T) {
	cert, key := selfSignedLeaf(t, "billing")
	pool := x509.NewCertPool()
	pool.AddCert(cert)

	cfg := validConfig(t)
	cfg.TrustAnchors = CertPoolTrustAnchors{Roots: pool}

	validUntil := time.Now().Add(time.Hour)
	local, daemon, err := New(cfg, UnaryCertifyFunc(func(ctx context.Context, req *CertifyRequest) (*CertifyResponse, error) {
		return &CertifyResponse{
			LeafCertificate: cert.Raw,
			ValidUntil:      &validUntil,
		}, nil
	}), nil)
	require.NoError(t, err)
	_ = key

	recv := local.CrtKey().Subscribe()
	defer recv.Release()

	resp, err := daemon.certify(context.Background())
	require.NoError(t, err)

	terminate := daemon.onResponse(resp)
	assert.False(t, terminate)

	got := recv.Get()
	require.NotNil(t, got)
	assert.Equal(t, cfg.LocalName, got.Crt.Name)
}

func TestDaemon_TerminatesWhenNoObservers(t *testing.T) {
	cert, _ := selfSignedLeaf(t, "billing")
	pool := x509.NewCertPool()
	pool.AddCert(cert)

	cfg := validConfig(t)
	cfg.TrustAnchors = CertPoolTrustAnchors{Roots: pool}
	validUntil := time.Now().Add(time.Hour)

	_, daemon, err := New(cfg, UnaryCertifyFunc(func(ctx context.Context, req *CertifyRequest) (*CertifyResponse, error) {
		return &CertifyResponse{LeafCertificate: cert.Raw, ValidUntil: &validUntil}, nil
	}), nil)
	require.NoError(t, err)

	// No subscribers at all: Publish must report no observers, and Run
	// must terminate cleanly on the first refresh attempt.
	done := make(chan error, 1)
	go func() { done <- daemon.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not terminate when no observers were subscribed")
	}
}

func validConfig(t *testing.T) Config {
	t.Helper()
	name, err := NewName("billing")
	require.NoError(t, err)
	return Config{
		ServiceAddr:  "identity.control-plane.svc:8443",
		TrustAnchors: CertPoolTrustAnchors{Roots: x509.NewCertPool()},
		Key:          Key{},
		CSR:          CSR("fake-csr"),
		LocalName:    name,
		Token:        StaticTokenSource{Token: []byte("token")},
		MinRefresh:   10 * time.Second,
		MaxRefresh:   24 * time.Hour,
	}
}

func selfSignedLeaf(t *testing.T, cn string) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: cn},
		DNSNames:              []string{cn},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, priv
}
