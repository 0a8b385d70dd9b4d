package scraper

import (
	"context"
	"errors"
	"log"
	"time"

	"plantprice/models"
)

// QueryOptions are the per-item settings of a batch
type QueryOptions struct {
	ExcludedSources []string
	PauseOnCaptcha  bool
	ResultCount     int
}

// FinderConfig configures a PriceFinder
type FinderConfig struct {
	Pacing             Pacing
	Pacer              Pacer
	Captcha            *CaptchaDetector
	MarketplaceTimeout time.Duration

	// Retailers and Specialty replace the built-in tables when set
	Retailers []SourceDescriptor
	Specialty []SourceDescriptor
}

// PriceFinder runs the per-item pipeline across every source category
type PriceFinder struct {
	search    *SearchEngineFetcher
	stores    *Fetcher
	retailers []SourceDescriptor
	specialty []SourceDescriptor
}

// NewPriceFinder creates a finder over the built-in source tables
func NewPriceFinder(cfg FinderConfig) *PriceFinder {
	pacer := cfg.Pacer
	if pacer == nil {
		pacer = RandomPacer{}
	}
	relevance := NewRelevanceFilter()

	stores := NewFetcher(relevance, pacer, cfg.Pacing.Source)
	stores.MarketplaceTimeout = cfg.MarketplaceTimeout

	retailers := cfg.Retailers
	if retailers == nil {
		retailers = RetailerSources
	}
	specialty := cfg.Specialty
	if specialty == nil {
		specialty = SpecialtySources
	}

	return &PriceFinder{
		search:    NewSearchEngineFetcher(relevance, cfg.Captcha, pacer, cfg.Pacing),
		stores:    stores,
		retailers: retailers,
		specialty: specialty,
	}
}

// FindPrices collects candidates for one item. Retailers go in first, then
// search engine results, then prioritized marketplaces; specialty nurseries
// are consulted only while fewer than ResultCount candidates exist.
//
// A captcha on the search page returns a *CaptchaError when PauseOnCaptcha is
// set; otherwise the set is flagged CaptchaSkipped and the other sources run.
func (f *PriceFinder) FindPrices(ctx context.Context, sess *Session, query string, opts QueryOptions) (*models.QueryResultSet, error) {
	count := opts.ResultCount
	if count <= 0 {
		count = models.DefaultResultCount
	}
	excluded := opts.ExcludedSources
	set := models.NewQueryResultSet(query)

	log.Printf("🔄 Processing: %s", query)

	searchResults, err := f.search.Fetch(ctx, sess, query, excluded)
	if err != nil {
		if !errors.Is(err, ErrCaptcha) || opts.PauseOnCaptcha {
			return set, err
		}
		log.Printf("⚠️ CAPTCHA detected but pausing is disabled, skipping %s", SearchEngineSource.Name)
		set.CaptchaSkipped = true
	}

	for _, d := range f.retailers {
		if err := ctx.Err(); err != nil {
			return set, err
		}
		set.AddAll(f.fetchSource(ctx, sess, query, d, excluded))
	}

	set.AddAll(searchResults)

	if err := ctx.Err(); err != nil {
		return set, err
	}
	set.AddAll(f.stores.FetchMarketplaces(ctx, sess.Direct(), query, true, excluded))

	for _, d := range f.specialty {
		if set.Len() >= count {
			break
		}
		if err := ctx.Err(); err != nil {
			return set, err
		}
		set.AddAll(f.fetchSource(ctx, sess, query, d, excluded))
	}

	if set.HasEnoughResults() {
		log.Printf("✅ %s: %d candidates across retailers and marketplaces", query, set.Len())
	} else {
		log.Printf("📝 %s: %d candidates", query, set.Len())
	}
	return set, nil
}

// fetchSource runs the store routine named by the descriptor's strategy
func (f *PriceFinder) fetchSource(ctx context.Context, sess *Session, query string, d SourceDescriptor, excluded []string) []models.SearchCandidate {
	switch d.Strategy {
	case StrategyBestMatch:
		return f.stores.FetchRetailer(ctx, sess.Direct(), query, d, excluded)
	case StrategyFirstMatch:
		return f.stores.FetchSpecialty(ctx, sess.Direct(), query, d, excluded)
	case StrategyListing:
		return f.stores.fetchListings(ctx, sess.Direct(), query, d, MarketplaceLimit(true), excluded)
	default:
		log.Printf("⚠️ %s has no store strategy (%q), skipping", d.Name, d.Strategy)
		return nil
	}
}
