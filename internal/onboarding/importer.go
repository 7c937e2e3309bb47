package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/receptionist-onboarding/internal/clock/system"
	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/brand"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/contact"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/hours"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/locale"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/location"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/pricelist"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/structured"
	"github.com/JakeFAU/receptionist-onboarding/internal/metrics"
	"github.com/JakeFAU/receptionist-onboarding/internal/oracle"
	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

// Crawler is the part of crawler.Engine the importer needs.
type Crawler interface {
	Crawl(ctx context.Context, req crawler.Request) (crawler.Result, error)
}

// ImporterConfig holds the crawl bounds used when a request leaves them unset.
type ImporterConfig struct {
	DefaultMaxPages int
	DefaultMaxDepth int
	ExcludePaths    []string
}

// Importer crawls a website, extracts a profile draft, reconciles it with the
// stored profile, and saves the result.
type Importer struct {
	cfg        ImporterConfig
	crawler    Crawler
	oracle     oracle.Oracle
	profiles   profile.Store
	reconciler *profile.Reconciler
	contacts   *contact.Extractor
	locations  *location.Resolver
	names      *brand.Selector
	clock      Clock
	logger     *zap.Logger
}

// NewImporter wires an Importer. A nil oracle disables the generative guess and a
// nil locale selects the built-in default.
func NewImporter(
	cfg ImporterConfig,
	c Crawler,
	o oracle.Oracle,
	profiles profile.Store,
	l *locale.Locale,
	clock Clock,
	logger *zap.Logger,
) *Importer {
	if o == nil {
		o = oracle.Noop{}
	}
	if l == nil {
		l = locale.Default()
	}
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultMaxPages <= 0 {
		cfg.DefaultMaxPages = crawler.DefaultMaxPages
	}
	if cfg.DefaultMaxDepth <= 0 {
		cfg.DefaultMaxDepth = crawler.DefaultMaxDepth
	}
	return &Importer{
		cfg:        cfg,
		crawler:    c,
		oracle:     o,
		profiles:   profiles,
		reconciler: profile.NewReconciler(l),
		contacts:   contact.New(l),
		locations:  location.New(l),
		names:      brand.New(l),
		clock:      clock,
		logger:     logger,
	}
}

// Import runs one onboarding import. Partial extraction is a normal outcome; the
// returned error is one CodeFor can classify.
func (i *Importer) Import(ctx context.Context, req Request) (Summary, error) {
	start := i.clock.Now()
	summary, err := i.run(ctx, req)
	metrics.ObserveImport(string(CodeFor(err)), i.clock.Now().Sub(start))
	return summary, err
}

func (i *Importer) run(ctx context.Context, req Request) (Summary, error) {
	if strings.TrimSpace(req.BusinessID) == "" {
		return Summary{}, errors.New("business id is required")
	}
	base, err := crawler.ParseBaseURL(req.URL)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	website := base.String()
	logger := i.logger.With(zap.String("business_id", req.BusinessID), zap.String("url", website))

	result, err := i.crawler.Crawl(ctx, i.crawlRequest(req, website))
	if err != nil {
		if errors.Is(err, crawler.ErrBrowserUnavailable) {
			return Summary{}, fmt.Errorf("crawl: %w", err)
		}
		if len(result.Pages) == 0 {
			return Summary{PagesFailed: result.FailedPages}, fmt.Errorf("%w: %w", ErrNoPages, err)
		}
		logger.Warn("crawl ended early, using partial result", zap.Int("pages", len(result.Pages)), zap.Error(err))
	}
	if len(result.Pages) == 0 {
		return Summary{PagesFailed: result.FailedPages}, ErrNoPages
	}
	metrics.ObserveBookingProviders(result.BookingProviders)

	draft := i.extract(ctx, req.BusinessID, website, result, logger)

	existing, err := i.profiles.Load(ctx, req.BusinessID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		existing = nil
	case err != nil:
		return summarize(result, profile.Profile{}), fmt.Errorf("%w: load profile: %w", ErrSaveFailed, err)
	}
	draft.Existing = existing

	final := i.reconciler.Reconcile(draft)
	final.UpdatedAt = i.clock.Now()
	if err := i.profiles.Save(ctx, &final); err != nil {
		return summarize(result, final), fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	summary := summarize(result, final)
	logger.Info("import finished",
		zap.Int("pages", summary.PagesCrawled),
		zap.Int("services", summary.ServicesFound),
		zap.Int("valid_hours", summary.ValidHours),
		zap.Int("locations", summary.Locations),
		zap.Strings("booking_providers", summary.BookingProviders),
	)
	return summary, nil
}

func (i *Importer) crawlRequest(req Request, website string) crawler.Request {
	out := crawler.Request{
		BusinessID:   req.BusinessID,
		BaseURL:      website,
		MaxPages:     req.MaxPages,
		MaxDepth:     req.MaxDepth,
		ForcedPaths:  req.ForcedPaths,
		ExcludePaths: append(append([]string(nil), i.cfg.ExcludePaths...), req.ExcludePaths...),
	}
	if out.MaxPages <= 0 {
		out.MaxPages = i.cfg.DefaultMaxPages
	}
	if out.MaxDepth <= 0 {
		out.MaxDepth = i.cfg.DefaultMaxDepth
	}
	return out
}

// extract runs every deterministic extractor and the oracle over the crawl. It
// never fails: a failing strategy just contributes nothing.
func (i *Importer) extract(
	ctx context.Context,
	businessID, website string,
	result crawler.Result,
	logger *zap.Logger,
) profile.Input {
	pages := result.Pages
	found := i.contacts.ExtractFromPages(pages)

	var (
		structuredHours []profile.DayHours
		textHours       []profile.DayHours
		services        []profile.Service
		texts           []string
	)
	for _, p := range pages {
		if len(structuredHours) == 0 {
			structuredHours = hours.FromStructured(structured.Parse(p.HTML))
		}
		if len(textHours) == 0 {
			textHours = hours.FromText(p.VisibleText)
		}
		services = append(services, pricelist.ExtractIfPriceListPage(p.URL, p.HTML)...)
		if p.VisibleText != "" {
			texts = append(texts, p.VisibleText)
		}
	}

	guess, err := i.oracle.Extract(ctx, strings.Join(texts, "\n\n"))
	if err != nil {
		logger.Warn("oracle extraction failed", zap.Error(err))
		guess = profile.Guess{}
	}

	name := i.names.Select(brand.Input{Pages: pages, BaseURL: website, OracleName: guess.Name})
	locs := i.locations.Resolve(location.Input{
		Pages:            pages,
		ProfileAddress:   found.Address,
		BookingProviders: result.BookingProviders,
	})

	return profile.Input{
		BusinessID: businessID,
		Website:    website,
		Contact: profile.Contact{
			Phone:            found.Phone,
			Email:            found.Email,
			Address:          found.Address,
			AddressIsSummary: found.AddressIsSummary(),
		},
		Oracle:           guess,
		Name:             name.Name,
		StructuredHours:  structuredHours,
		TextHours:        textHours,
		DOMServices:      services,
		Locations:        locs,
		BookingProviders: result.BookingProviders,
	}
}

func summarize(result crawler.Result, final profile.Profile) Summary {
	s := Summary{
		PagesCrawled:     len(result.Pages),
		PagesFailed:      result.FailedPages,
		ChunksCreated:    result.ChunksCreated,
		ServicesFound:    len(final.Services),
		Locations:        len(final.Locations),
		BookingProviders: result.BookingProviders,
	}
	for _, h := range final.Hours {
		if h.Valid() {
			s.ValidHours++
		}
	}
	for _, p := range result.Pages {
		s.Pages = append(s.Pages, p.URL)
	}
	return s
}
