// Package chromedpbrowser opens isolated headless Chrome sessions that can
// load box pages and export articles to PDF.
package chromedpbrowser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/boxarchiver/internal/archiver"
)

const (
	defaultStartTimeout = 30 * time.Second
	scrollStartTimeout  = 10 * time.Second
)

// Config controls how each browser is launched.
type Config struct {
	Headless        bool
	WindowMaximized bool
	UserAgent       string
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
	// HideSiblingsOf lists selectors whose siblings are hidden before export.
	HideSiblingsOf []string
	// HideFollowing hides every sibling after the first match.
	HideFollowing string
	StartTimeout  time.Duration
}

// Opener launches one fresh browser per session. Nothing (cookies, cache,
// tabs) is shared between sessions.
type Opener struct {
	cfg    Config
	logger *zap.Logger
}

// New returns an Opener for cfg.
func New(cfg Config, logger *zap.Logger) (*Opener, error) {
	if cfg.StartTimeout < 0 {
		return nil, fmt.Errorf("start timeout must be >= 0")
	}
	if cfg.StartTimeout == 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Opener{cfg: cfg, logger: logger}, nil
}

// Open implements archiver.SessionOpener.
func (o *Opener) Open(ctx context.Context) (archiver.Session, error) {
	return o.launch(ctx)
}

// OpenRender implements archiver.RenderOpener.
func (o *Opener) OpenRender(ctx context.Context) (archiver.RenderSession, error) {
	return o.launch(ctx)
}

func (o *Opener) launch(ctx context.Context) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), o.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(o.logger.Sugar().Errorf),
	)
	s := &Session{
		cfg:         o.cfg,
		tab:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}
	// The first Run starts the browser process.
	if err := s.run(ctx, o.cfg.StartTimeout, s.setupAction()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

func (o *Opener) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if o.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if o.cfg.WindowMaximized {
		opts = append(opts, chromedp.Flag("start-maximized", true))
	}
	if o.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.cfg.ExecPath))
	}
	return opts
}

// Session is one browser with a single tab.
type Session struct {
	cfg         Config
	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

var _ archiver.RenderSession = (*Session)(nil)

func (s *Session) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// run executes actions on the tab, bounded by timeout (if positive) and by
// the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.tab, timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.tab)
	}
	defer cancel()
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("chromedp run canceled: %w", ctxErr)
		}
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

// Navigate loads url and waits until the body is ready.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return s.run(ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// HTML returns the serialized document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// HideNonContent hides page chrome around the article body.
func (s *Session) HideNonContent(ctx context.Context) error {
	script, err := hideScript(s.cfg.HideSiblingsOf, s.cfg.HideFollowing)
	if err != nil {
		return err
	}
	var hidden int
	return s.run(ctx, 0, chromedp.Evaluate(script, &hidden))
}

// ScrollToBottom starts scrolling the document to its end over the given
// duration so lazy content is requested. It returns once the scroll is
// running; the caller waits for it to finish.
func (s *Session) ScrollToBottom(ctx context.Context, within time.Duration) error {
	var started bool
	return s.run(ctx, scrollStartTimeout, chromedp.Evaluate(scrollScript(within), &started))
}

// ExportFixed prints the current page to PDF.
func (s *Session) ExportFixed(ctx context.Context, opts archiver.ExportOptions) ([]byte, error) {
	params, err := printParams(opts)
	if err != nil {
		return nil, err
	}
	var pdf []byte
	actions := []chromedp.Action{}
	if opts.Media != "" {
		actions = append(actions, emulation.SetEmulatedMedia().WithMedia(opts.Media))
	}
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := params.Do(ctx)
		if err != nil {
			return fmt.Errorf("print to pdf: %w", err)
		}
		pdf = data
		return nil
	}))
	if err := s.run(ctx, 0, actions...); err != nil {
		return nil, err
	}
	return pdf, nil
}

func printParams(opts archiver.ExportOptions) (*page.PrintToPDFParams, error) {
	width, height, err := paperSize(opts.PageFormat)
	if err != nil {
		return nil, err
	}
	left := 0.0
	if opts.MarginLeft != "" {
		left, err = parseLength(opts.MarginLeft)
		if err != nil {
			return nil, fmt.Errorf("margin left: %w", err)
		}
	}
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	return page.PrintToPDF().
		WithPrintBackground(opts.PrintBackground).
		WithScale(scale).
		WithPaperWidth(width).
		WithPaperHeight(height).
		WithMarginLeft(left).
		WithMarginTop(0).
		WithMarginRight(0).
		WithMarginBottom(0), nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.tab); err != nil {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
		s.tabCancel()
		s.allocCancel()
	})
	return s.closeErr
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
