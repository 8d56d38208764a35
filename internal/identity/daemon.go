package identity

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sufield/ephemos/internal/core/services"
	"github.com/sufield/ephemos/internal/watch"
)

// Option is a convenience alias spelling out the spec's Watch<Option<CrtKey>>
// as the Go idiom: a nil pointer stands in for "no certificate yet".
type Option = *CrtKey

// state is the daemon's three-state refresh loop (spec.md §4.1). It is kept
// as an explicit enum, rather than collapsed into the run loop, so that the
// transition table stays legible and independently testable.
type state int

const (
	stateShouldRefresh state = iota
	statePending
	stateWaiting
)

// Daemon is the background task that keeps this workload's certificate
// fresh. Spawn it with Run; it runs until the watch reports no observers,
// at which point Run returns nil.
type Daemon struct {
	config  Config
	client  CertifyClient
	w       *watch.Watch[Option]
	logger  *slog.Logger
	metrics services.MetricsReporter

	// expiry is the daemon's private view of the current certificate's
	// expiry; it survives failed refresh attempts so the delay algorithm
	// always has a basis to compute against (spec.md §4.1 Pending
	// transition: "the previous one, or epoch if none yet").
	expiry time.Time
}

// Local is the read side handed to TLS-using components: the workload's
// name, its trust anchors, and a Watch of the current certificate.
type Local struct {
	name         Name
	trustAnchors TrustAnchors
	crtKey       *watch.Watch[Option]
}

// Name returns this workload's identity name.
func (l *Local) Name() Name { return l.name }

// TrustAnchors returns the verifier this workload's certificates are
// checked against.
func (l *Local) TrustAnchors() TrustAnchors { return l.trustAnchors }

// CrtKey returns the Watch other components subscribe to for the current
// certificate.
func (l *Local) CrtKey() *watch.Watch[Option] { return l.crtKey }

// New constructs the Local/Daemon pair described in spec.md §4.1. Local is
// safe to hand to TLS acceptors and outbound clients immediately; Daemon
// must be run (typically via `go daemon.Run(ctx)`) for the watch to ever
// receive a value.
func New(config Config, client CertifyClient, logger *slog.Logger) (*Local, *Daemon, error) {
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := watch.New[Option](nil)
	local := &Local{
		name:         config.LocalName,
		trustAnchors: config.TrustAnchors,
		crtKey:       w,
	}
	daemon := &Daemon{
		config:  config,
		client:  client,
		w:       w,
		logger:  logger,
		metrics: &services.NoOpMetrics{},
	}
	return local, daemon, nil
}

// SetMetrics installs a metrics reporter, replacing the default no-op one.
// Call before Run.
func (d *Daemon) SetMetrics(m services.MetricsReporter) {
	if m != nil {
		d.metrics = m
	}
}

// Run drives the ShouldRefresh -> Pending -> Waiting state machine until
// the watch reports no observers, at which point it returns nil (spec.md
// §4.1 "terminates normally"). It also returns nil if ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	st := stateShouldRefresh
	for {
		switch st {
		case stateShouldRefresh:
			start := time.Now()
			resp, err := d.certify(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				d.logger.Warn("identity: certify RPC failed", "error", err)
				d.metrics.RecordRetry("identity", 1)
				st = stateWaiting
				continue
			}
			if terminate := d.onResponse(resp); terminate {
				return nil
			}
			d.metrics.RecordRefresh("scheduled", time.Since(start).Seconds())
			st = stateWaiting

		case stateWaiting:
			delay := d.nextDelay()
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
				st = stateShouldRefresh
			case <-ctx.Done():
				timer.Stop()
				return nil
			}

		case statePending:
			// Pending is folded into stateShouldRefresh's blocking RPC
			// call above; it exists as a named state purely to mirror
			// spec.md's three-state model in documentation and tests.
			st = stateShouldRefresh
		}
	}
}

// certify builds a CertifyRequest from the current TokenSource and CSR and
// issues the RPC. A TokenSource load failure is treated exactly like an
// RPC failure (spec.md §9 open question: do not panic on token failure).
func (d *Daemon) certify(ctx context.Context) (*CertifyResponse, error) {
	token, err := d.config.Token.Load()
	if err != nil {
		return nil, err
	}
	req := &CertifyRequest{
		Identity:                  d.config.LocalName.String(),
		Token:                     token,
		CertificateSigningRequest: d.config.CSR,
	}
	return d.client.Certify(ctx, req)
}

// onResponse runs the validation pipeline from spec.md §4.1 step "Pending".
// It returns true if the daemon should terminate (watch has no observers).
func (d *Daemon) onResponse(resp *CertifyResponse) bool {
	if resp.ValidUntil == nil {
		d.logger.Warn("identity: certify response missing valid_until")
		return false
	}

	leaf, chain, err := decodeCertificates(resp.LeafCertificate, resp.IntermediateCertificates)
	if err != nil {
		d.logger.Warn("identity: failed to decode certify response", "error", err)
		return false
	}

	crt := Crt{
		Name:          d.config.LocalName,
		Leaf:          leaf,
		Intermediates: chain,
		Expiry:        *resp.ValidUntil,
	}

	crtKey, err := d.config.TrustAnchors.Certify(d.config.Key, crt)
	if err != nil {
		d.logger.Warn("identity: certificate failed trust-anchor verification", "error", err)
		return false
	}

	ck := crtKey
	if err := d.w.Publish(&ck); err != nil {
		d.logger.Debug("identity: no observers remain, daemon terminating")
		return true
	}
	d.expiry = crt.Expiry
	d.metrics.RecordValidation(true)
	d.metrics.UpdateCertExpiry(d.config.LocalName.String(), float64(crt.Expiry.Unix()))
	return false
}

// nextDelay implements the refresh-delay algorithm from spec.md §4.1 and
// §8: 70% of remaining lifetime, clamped into [MinRefresh, MaxRefresh], with
// optional jitter layered on afterward and re-clamped into the same bounds
// so jitter can never push the scheduled delay outside them.
func (d *Daemon) nextDelay() time.Duration {
	delay := computeRefreshDelay(d.expiry, time.Now(), d.config.MinRefresh, d.config.MaxRefresh)
	if d.config.Jitter > 0 {
		delay = clamp(applyJitter(delay, d.config.Jitter), d.config.MinRefresh, d.config.MaxRefresh)
	}
	return delay
}

// computeRefreshDelay is the pure function backing nextDelay, split out so
// spec.md §8 scenarios 1-4 can be asserted without driving the full state
// machine.
func computeRefreshDelay(expiry, now time.Time, minRefresh, maxRefresh time.Duration) time.Duration {
	var remaining time.Duration
	if !expiry.IsZero() && expiry.After(now) {
		remaining = expiry.Sub(now)
	}
	target := time.Duration(float64(remaining) * 0.7)
	return clamp(target, minRefresh, maxRefresh)
}

func clamp(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

func applyJitter(d time.Duration, fraction float64) time.Duration {
	spread := float64(d) * fraction
	offset := (rand.Float64()*2 - 1) * spread // nolint:gosec // not security sensitive
	return d + time.Duration(offset)
}
