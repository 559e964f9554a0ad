package archiver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/boxarchiver/internal/batch"
	"github.com/JakeFAU/boxarchiver/internal/extract"
	"github.com/JakeFAU/boxarchiver/internal/metrics"
)

// Harvester collects article links from listing pages.
type Harvester struct {
	cfg      Config
	opener   SessionOpener
	pauser   Pauser
	reporter Reporter
	logger   *zap.Logger
}

// NewHarvester constructs a Harvester.
func NewHarvester(cfg Config, opener SessionOpener, pauser Pauser, reporter Reporter, logger *zap.Logger) *Harvester {
	if pauser == nil {
		pauser = TimerPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		cfg:      cfg,
		opener:   opener,
		pauser:   pauser,
		reporter: reporter,
		logger:   logger,
	}
}

// Harvest fetches every page with at most cfg.HarvestConcurrency pages in
// flight and returns the raw article hrefs, page by page, in link order.
func (h *Harvester) Harvest(ctx context.Context, pages []ListingPage) ([]string, error) {
	start := time.Now()
	perPage, err := batch.Map(ctx, pages, h.cfg.HarvestConcurrency, h.harvestPage)
	metrics.ObserveStage("harvest", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("harvest listing: %w", err)
	}

	var links []string
	for _, pageLinks := range perPage {
		for _, link := range pageLinks {
			links = append(links, link)
		}
	}
	h.logger.Info("listing harvested", zap.Int("pages", len(pages)), zap.Int("links", len(links)))
	return links, nil
}

func (h *Harvester) harvestPage(ctx context.Context, page ListingPage) ([]string, error) {
	h.reporter.PageStarted(page)
	logger := h.logger.With(zap.Int("page", page.Order), zap.String("url", page.URL))

	var links []string
	err := withSession(ctx, h.opener.Open, logger, func(s Session) error {
		if err := s.Navigate(ctx, page.URL, h.cfg.ListingTimeout); err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		raw, err := s.HTML(ctx)
		if err != nil {
			return fmt.Errorf("read listing html: %w", err)
		}
		links, err = listingLinks(raw)
		if err != nil {
			return err
		}
		return h.pauser.Pause(ctx, h.cfg.Interval)
	})
	if err != nil {
		metrics.ObserveListingPage("failed")
		logger.Error("listing page failed", zap.Error(err))
		return nil, fmt.Errorf("listing page %d: %w", page.Order, err)
	}

	metrics.ObserveListingPage("succeeded")
	logger.Debug("listing page harvested", zap.Int("links", len(links)))
	h.reporter.PageDone(page, len(links))
	return links, nil
}

func listingLinks(raw string) ([]string, error) {
	doc, err := extract.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListingNotFound, err)
	}
	links, err := doc.ArticleLinks()
	switch {
	case err == nil:
		return links, nil
	case errors.Is(err, extract.ErrMissingHref):
		return nil, fmt.Errorf("%w: %w", ErrLinkMissing, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrListingNotFound, err)
	}
}
