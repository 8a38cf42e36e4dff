// Package ratelimit provides a sliding-window limiter gating both request
// and token throughput against the embedding provider's ceilings.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/grapecity-cn/docsmcp/internal/errors"
)

// DefaultWindow is the sliding window over which ceilings apply.
const DefaultWindow = 60 * time.Second

// Config holds the limiter ceilings.
type Config struct {
	// RPM is the maximum requests per window.
	RPM int
	// TPM is the maximum estimated tokens per window.
	TPM int
	// Window defaults to DefaultWindow when zero.
	Window time.Duration
}

type entry struct {
	at     time.Time
	tokens int
}

// Limiter tracks requests and token counts over a sliding window. All
// methods are safe for concurrent use; mutation is serialized internally.
type Limiter struct {
	mu     sync.Mutex
	cfg    Config
	now    func() time.Time
	window []entry
	tokens int // running sum over window
}

// New creates a limiter with the given ceilings.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Limiter{cfg: cfg, now: time.Now}
}

// Check fails with a RateLimitError when admitting a request with the given
// estimated token cost would exceed either ceiling. It does not record.
func (l *Limiter) Check(tokens int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(tokens)
}

// Record appends an observation. Entries older than the window are evicted
// lazily on every observation.
func (l *Limiter) Record(tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(tokens)
}

// CheckAndRecord admits and records atomically with respect to concurrent
// callers: two callers cannot both pass a ceiling only jointly exceeded.
func (l *Limiter) CheckAndRecord(tokens int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(tokens); err != nil {
		return err
	}
	l.record(tokens)
	return nil
}

// Stats reports the current window occupancy.
func (l *Limiter) Stats() (requests, tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict()
	return len(l.window), l.tokens
}

func (l *Limiter) check(tokens int) error {
	l.evict()

	if len(l.window)+1 > l.cfg.RPM {
		return errors.NewRateLimitError(
			fmt.Sprintf("request limit reached (%d/%ds)", l.cfg.RPM, int(l.cfg.Window.Seconds())),
			l.retryAfter(),
		)
	}
	if l.tokens+tokens > l.cfg.TPM {
		return errors.NewRateLimitError(
			fmt.Sprintf("token limit reached (%d/%ds)", l.cfg.TPM, int(l.cfg.Window.Seconds())),
			l.retryAfter(),
		)
	}
	return nil
}

func (l *Limiter) record(tokens int) {
	l.evict()
	l.window = append(l.window, entry{at: l.now(), tokens: tokens})
	l.tokens += tokens
}

// evict drops entries older than the window.
func (l *Limiter) evict() {
	cutoff := l.now().Add(-l.cfg.Window)
	i := 0
	for i < len(l.window) && !l.window[i].at.After(cutoff) {
		l.tokens -= l.window[i].tokens
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

// retryAfter computes how long until the earliest entry leaves the window,
// floored at zero and ceiled to whole seconds.
func (l *Limiter) retryAfter() time.Duration {
	if len(l.window) == 0 {
		return 0
	}
	wait := l.window[0].at.Add(l.cfg.Window).Sub(l.now())
	if wait <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(wait.Seconds())) * time.Second
}
