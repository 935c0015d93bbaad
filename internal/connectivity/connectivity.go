// Package connectivity abstracts the "are we online" signal the pipeline
// drains against.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Signal reports connectivity and notifies listeners when it comes back.
type Signal interface {
	IsOnline() bool
	// OnRestored registers a callback fired on every offline-to-online
	// transition.
	OnRestored(fn func())
}

// Manual is a Signal driven by explicit SetOnline calls. Used by tests and
// by CLI runs where connectivity is asserted by the operator.
type Manual struct {
	mu        sync.Mutex
	online    bool
	listeners []func()
}

// NewManual returns a Manual signal in the given initial state.
func NewManual(online bool) *Manual {
	return &Manual{online: online}
}

func (m *Manual) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Manual) OnRestored(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetOnline flips the state, firing restored callbacks on the offline-to-
// online edge.
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	restored := online && !m.online
	m.online = online
	listeners := make([]func(), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	if restored {
		for _, fn := range listeners {
			fn()
		}
	}
}

// Probe runs a single reachability check against url. One-shot CLI runs use
// it to seed a Manual signal instead of running a Prober loop.
func Probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	return err == nil
}

// Prober is a Signal backed by periodic HTTP reachability checks against a
// probe URL.
type Prober struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger

	mu        sync.Mutex
	online    bool
	listeners []func()
}

// NewProber builds a prober that checks url every interval once Run is
// started. The initial state is offline until the first successful probe.
func NewProber(url string, interval time.Duration, logger *slog.Logger) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

func (p *Prober) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *Prober) OnRestored(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Run probes until ctx is canceled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *Prober) check(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return
	}
	resp, err := p.client.Do(req)
	online := err == nil
	if resp != nil {
		resp.Body.Close()
	}

	p.mu.Lock()
	restored := online && !p.online
	p.online = online
	listeners := make([]func(), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	if restored {
		p.logger.Info("connectivity restored", "probe_url", p.url)
		for _, fn := range listeners {
			fn()
		}
	}
}
