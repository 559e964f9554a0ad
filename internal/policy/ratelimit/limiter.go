// Package ratelimit implements a per-host token bucket that throttles
// browser navigations on top of the fixed courtesy delay.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/boxarchiver/internal/archiver"
	"github.com/JakeFAU/boxarchiver/internal/metrics"
)

// Limiter manages per-host rate limits.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// Config holds rate limiter configuration. A non-positive RPS disables
// limiting.
type Config struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// Wait blocks until a token is available for the host of rawURL.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	// Tokens that were already available are not worth a sample.
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, d)
	}
	return nil
}

// Pages wraps opener so every Navigate waits on l first.
func Pages(opener archiver.SessionOpener, l *Limiter) archiver.SessionOpener {
	return pageOpener{next: opener, limiter: l}
}

// Renders wraps opener so every Navigate waits on l first.
func Renders(opener archiver.RenderOpener, l *Limiter) archiver.RenderOpener {
	return renderOpener{next: opener, limiter: l}
}

type pageOpener struct {
	next    archiver.SessionOpener
	limiter *Limiter
}

func (o pageOpener) Open(ctx context.Context) (archiver.Session, error) {
	s, err := o.next.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &pageSession{Session: s, limiter: o.limiter}, nil
}

type pageSession struct {
	archiver.Session
	limiter *Limiter
}

func (s *pageSession) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	if err := s.limiter.Wait(ctx, rawURL); err != nil {
		return err
	}
	return s.Session.Navigate(ctx, rawURL, timeout)
}

type renderOpener struct {
	next    archiver.RenderOpener
	limiter *Limiter
}

func (o renderOpener) OpenRender(ctx context.Context) (archiver.RenderSession, error) {
	s, err := o.next.OpenRender(ctx)
	if err != nil {
		return nil, err
	}
	return &renderSession{RenderSession: s, limiter: o.limiter}, nil
}

type renderSession struct {
	archiver.RenderSession
	limiter *Limiter
}

func (s *renderSession) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	if err := s.limiter.Wait(ctx, rawURL); err != nil {
		return err
	}
	return s.RenderSession.Navigate(ctx, rawURL, timeout)
}
