// Package selftest runs known-answer vectors against a provider before any
// engine built on it is used. A gate runs once; if any vector mismatches it
// fails closed and stays failed.
package selftest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"

	"github.com/TheusHen/xform/internal/metrics"
	"github.com/TheusHen/xform/xform/errs"
	"github.com/TheusHen/xform/xform/provider"
)

// State is where a gate is in its life: it starts NotRun and moves once,
// to Passed or Failed.
type State int

const (
	NotRun State = iota
	Passed
	Failed
)

func (s State) String() string {
	switch s {
	case NotRun:
		return "not-run"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Gate guards one provider. It is safe for concurrent use.
type Gate struct {
	p       provider.Provider
	logger  log.Logger
	vectors []Vector
	metrics bool

	once  sync.Once
	mu    sync.RWMutex
	state State
	err   error
}

// Option configures NewGate.
type Option func(*Gate)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l log.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithMetrics enables the Prometheus self-test counters.
func WithMetrics(enabled bool) Option {
	return func(g *Gate) { g.metrics = enabled }
}

// WithVectors replaces the default vector set.
func WithVectors(v ...Vector) Option {
	return func(g *Gate) { g.vectors = v }
}

// NewGate returns a gate for p that has not run yet. Without WithVectors it
// checks DefaultVectors.
func NewGate(p provider.Provider, opts ...Option) *Gate {
	g := &Gate{
		p:       p,
		logger:  log.NewNopLogger(),
		vectors: DefaultVectors(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Run executes the vectors on first call. Every call returns the same
// result: nil if all vectors matched, errs.ErrSelfTestFailure otherwise.
func (g *Gate) Run() error {
	g.once.Do(func() {
		err := g.run()
		g.mu.Lock()
		if err != nil {
			g.state, g.err = Failed, err
		} else {
			g.state = Passed
		}
		g.mu.Unlock()
		if g.metrics {
			metrics.SelfTestRuns().WithLabelValues(metrics.Result(err == nil)).Inc()
		}
	})
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

func (g *Gate) run() error {
	start := time.Now()
	var checked, skipped int
	for _, v := range g.vectors {
		err := g.check(v)
		if errors.Is(err, errSkipped) {
			skipped++
			g.logger.Debug("self-test vector skipped", "provider", g.p.Name(), "vector", v.Name)
			continue
		}
		if g.metrics {
			metrics.SelfTestVectors().WithLabelValues(metrics.Result(err == nil)).Inc()
		}
		if err != nil {
			g.logger.Error("self-test vector failed", "provider", g.p.Name(), "vector", v.Name, "err", err)
			return errs.Wrapf(errs.ErrSelfTestFailure, "%s: vector %q: %v", g.p.Name(), v.Name, err)
		}
		checked++
	}
	g.logger.Info("self-test passed", "provider", g.p.Name(), "vectors", checked, "skipped", skipped, "elapsed", time.Since(start))
	return nil
}

// check runs one vector, turning a panic in a broken backend into an error.
func (g *Gate) check(v Vector) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return v.Check(g.p)
}

// Check reports whether engines may be used: nil once Run has passed,
// errs.ErrSelfTestFailure after a failure and errs.ErrNotInitialized before
// Run.
func (g *Gate) Check() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch g.state {
	case Passed:
		return nil
	case Failed:
		return g.err
	default:
		return errs.Wrapf(errs.ErrNotInitialized, "%s: call Run first", g.p.Name())
	}
}

// State is the current gate state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Provider is the provider the gate guards.
func (g *Gate) Provider() provider.Provider { return g.p }
