// Package xform is the fail-closed entry point to the transform engines.
//
// A Library binds a provider to a self-test gate. Engines are only handed
// out once the gate has passed; a gate that failed refuses every request
// for the rest of the Library's life.
//
//	lib, err := xform.Initialize()
//	if err != nil {
//		// the backend is broken; do not fall back
//	}
//	c, err := lib.NewStream(provider.XSalsa20, key, nonce)
package xform

import (
	"sync"

	"cosmossdk.io/log"

	"github.com/TheusHen/xform/xform/digest"
	"github.com/TheusHen/xform/xform/provider"
	"github.com/TheusHen/xform/xform/selftest"
	"github.com/TheusHen/xform/xform/sign"
	"github.com/TheusHen/xform/xform/stream"
)

type config struct {
	logger  log.Logger
	metrics bool
	vectors []selftest.Vector
}

// Option configures New and Initialize.
type Option func(*config)

// WithLogger sets the logger used by the Library and its gate. The
// default discards everything.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics enables Prometheus counters for the self-test.
func WithMetrics(enabled bool) Option {
	return func(c *config) { c.metrics = enabled }
}

// WithExtraVectors runs v in addition to the default power-up vectors.
func WithExtraVectors(v ...selftest.Vector) Option {
	return func(c *config) { c.vectors = append(c.vectors, v...) }
}

// Library hands out engines bound to one provider.
type Library struct {
	p      provider.Provider
	gate   *selftest.Gate
	logger log.Logger
}

// New builds a Library on p and runs its self-test. On failure the
// returned Library is still non-nil so that callers can inspect its State,
// but it refuses to create engines.
func New(p provider.Provider, opts ...Option) (*Library, error) {
	cfg := config{logger: log.NewNopLogger()}
	for _, o := range opts {
		o(&cfg)
	}
	gopts := []selftest.Option{
		selftest.WithLogger(cfg.logger),
		selftest.WithMetrics(cfg.metrics),
	}
	if len(cfg.vectors) > 0 {
		gopts = append(gopts, selftest.WithVectors(append(selftest.DefaultVectors(), cfg.vectors...)...))
	}
	lib := &Library{
		p:      p,
		gate:   selftest.NewGate(p, gopts...),
		logger: cfg.logger.With("module", "xform", "provider", p.Name()),
	}
	return lib, lib.gate.Run()
}

var (
	initOnce sync.Once
	initLib  *Library
	initErr  error
)

// Initialize builds the process-wide Library on provider.Default. Only the
// first call's options take effect; later calls return the same result.
func Initialize(opts ...Option) (*Library, error) {
	initOnce.Do(func() {
		initLib, initErr = New(provider.Default(), opts...)
	})
	return initLib, initErr
}

// Provider is the provider the Library was built on.
func (l *Library) Provider() provider.Provider { return l.p }

// State is the state of the Library's self-test gate.
func (l *Library) State() selftest.State { return l.gate.State() }

// Logger returns the configured logger.
func (l *Library) Logger() log.Logger { return l.logger }

// Check returns nil if engines may be created.
func (l *Library) Check() error { return l.gate.Check() }

// NewStream creates a stream cipher. A nil iv selects the all-zero IV.
func (l *Library) NewStream(alg provider.StreamAlgorithm, key, iv []byte) (*stream.Cipher, error) {
	if err := l.gate.Check(); err != nil {
		return nil, err
	}
	p, err := l.p.Stream(alg)
	if err != nil {
		return nil, err
	}
	return stream.New(p, key, iv)
}

// NewHash creates an unkeyed hasher that has already absorbed initial.
func (l *Library) NewHash(alg provider.HashAlgorithm, initial []byte) (*digest.Hasher, error) {
	return l.NewKeyedHash(alg, nil, initial)
}

// NewKeyedHash creates a hasher in keyed mode; only primitives with a keyed
// mode accept a non-nil key.
func (l *Library) NewKeyedHash(alg provider.HashAlgorithm, key, initial []byte) (*digest.Hasher, error) {
	if err := l.gate.Check(); err != nil {
		return nil, err
	}
	p, err := l.p.Hash(alg)
	if err != nil {
		return nil, err
	}
	return digest.NewKeyed(p, key, initial)
}

// GenerateKey creates a signing key; see sign.Generate.
func (l *Library) GenerateKey(alg provider.SignAlgorithm, bits int, seed []byte) (*sign.SigningKey, error) {
	if err := l.gate.Check(); err != nil {
		return nil, err
	}
	p, err := l.p.Signature(alg)
	if err != nil {
		return nil, err
	}
	k, err := sign.Generate(p, bits, seed)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("generated signing key", "algorithm", alg, "bits", k.Bits(), "seeded", seed != nil)
	return k, nil
}

// ParseSigningKey parses a key produced by sign.SigningKey.Marshal.
func (l *Library) ParseSigningKey(b []byte) (*sign.SigningKey, error) {
	if err := l.gate.Check(); err != nil {
		return nil, err
	}
	return sign.UnmarshalSigningKey(l.p, b)
}

func (l *Library) ParseVerifyingKey(b []byte) (*sign.VerifyingKey, error) {
	if err := l.gate.Check(); err != nil {
		return nil, err
	}
	return sign.UnmarshalVerifyingKey(l.p, b)
}
