// Package collybrowser implements archiver sessions over plain HTTP using
// gocolly. It serves box and listing pages, which render without scripts.
package collybrowser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/boxarchiver/internal/archiver"
)

// ErrNoPage is returned by HTML before a successful Navigate.
var ErrNoPage = errors.New("no page loaded")

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Transport http.RoundTripper
}

// Opener hands out sessions cloned from one base collector, so connections
// are pooled but no response state is shared.
type Opener struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds an Opener.
func New(cfg Config) *Opener {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	transport := cfg.Transport
	if transport == nil {
		transport = newHTTPTransport()
	}
	c.WithTransport(transport)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return &Opener{cfg: cfg, baseCollector: c}
}

// Open implements archiver.SessionOpener.
func (o *Opener) Open(context.Context) (archiver.Session, error) {
	return &Session{base: o.baseCollector}, nil
}

// Session keeps the last fetched document.
type Session struct {
	base *colly.Collector
	body []byte
	url  string
}

// Navigate fetches url and keeps the response body.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	var (
		body     []byte
		fetchErr error
	)
	collector := s.base.Clone()
	if timeout > 0 {
		collector.SetRequestTimeout(timeout)
	}
	configureHooks(collector, &body, &fetchErr)
	if err := runCollector(ctx, collector, url, &fetchErr); err != nil {
		return err
	}
	s.body = body
	s.url = url
	return nil
}

func configureHooks(hooks collectorHooks, body *[]byte, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*body = append([]byte(nil), r.Body...)
	})
	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			err = fmt.Errorf("status %d: %w", r.StatusCode, err)
		}
		*fetchErr = err
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

// HTML returns the body of the last page.
func (s *Session) HTML(context.Context) (string, error) {
	if s.url == "" {
		return "", ErrNoPage
	}
	return string(s.body), nil
}

// Close drops the kept document.
func (s *Session) Close() error {
	s.body = nil
	s.url = ""
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
