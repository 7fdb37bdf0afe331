package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"thinkpad-price-tracker/internal/catalog"
	"thinkpad-price-tracker/internal/parser"
	"thinkpad-price-tracker/internal/source"
	"thinkpad-price-tracker/internal/storage"
)

// Options tune the reconcile run.
type Options struct {
	// BatchSize bounds how many newly created listings accumulate before
	// staged writes are flushed to the store.
	BatchSize int
	// StalenessThreshold is how long an ACTIVE listing may go unseen before
	// the sweep presumes it sold.
	StalenessThreshold time.Duration
}

const (
	defaultBatchSize          = 50
	defaultStalenessThreshold = 24 * time.Hour
)

// Result reports what one reconcile run did.
type Result struct {
	Processed   int
	Created     int
	Updated     int
	SkippedJunk int
	Failed      int
	MarkedSold  int64
}

// Reconciler merges batches of raw marketplace items into the product /
// listing / price-history store. Items are isolated from each other: a
// failing item is routed to the failure sink and the batch continues.
type Reconciler struct {
	store    storage.ReconcileStore
	catalog  catalog.Catalog
	failures *Sink
	logger   zerolog.Logger
	opts     Options
	now      func() time.Time
}

// New constructs a Reconciler.
func New(store storage.ReconcileStore, cat catalog.Catalog, failures *Sink, logger zerolog.Logger, opts Options) *Reconciler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.StalenessThreshold <= 0 {
		opts.StalenessThreshold = defaultStalenessThreshold
	}
	return &Reconciler{
		store:    store,
		catalog:  cat,
		failures: failures,
		logger:   logger.With().Str("component", "reconciler").Logger(),
		opts:     opts,
		now:      time.Now,
	}
}

// preparedItem is the outcome of the pure per-item front half: identity
// fields plus resolved specs, or the error that stopped it.
type preparedItem struct {
	raw   source.RawListing
	price decimal.Decimal
	specs parser.Specs
	junk  bool
	err   error
}

// Reconcile processes one batch of raw listings against the store, then
// runs the time-based staleness sweep. Per-item failures land in the
// failure sink; only store-level failures (hydration, flush, sweep) abort
// the run, and chunks already flushed stay committed.
func (r *Reconciler) Reconcile(ctx context.Context, batch []source.RawListing) (Result, error) {
	now := r.now().UTC()
	result := Result{}

	prepared := make([]preparedItem, 0, len(batch))
	externalIDs := make([]string, 0, len(batch))
	modelNames := make([]string, 0, len(batch))
	for _, item := range batch {
		p := r.prepare(item)
		prepared = append(prepared, p)
		if p.err != nil || p.junk {
			continue
		}
		externalIDs = append(externalIDs, p.raw.ItemID)
		modelNames = append(modelNames, p.specs.Model)
	}

	// One bulk existence check per mapping; the maps are mutated as the
	// batch creates rows so later items see earlier siblings.
	products, err := r.store.ProductsByModelName(ctx, modelNames)
	if err != nil {
		return result, fmt.Errorf("hydrate products: %w", err)
	}
	listings, err := r.store.ListingsByExternalID(ctx, externalIDs)
	if err != nil {
		return result, fmt.Errorf("hydrate listings: %w", err)
	}

	usedSlugs := make(map[string]bool)
	pendingCreates := 0

	for _, p := range prepared {
		result.Processed++

		if p.err != nil {
			result.Failed++
			r.recordFailure(p.raw, p.err)
			continue
		}
		if p.junk {
			result.SkippedJunk++
			continue
		}

		created, err := r.upsert(ctx, p, now, products, listings, usedSlugs)
		if err != nil {
			result.Failed++
			r.recordFailure(p.raw, err)
			continue
		}

		if created {
			result.Created++
			pendingCreates++
			if pendingCreates%r.opts.BatchSize == 0 {
				if err := r.store.Flush(ctx); err != nil {
					return result, fmt.Errorf("flush batch: %w", err)
				}
			}
		} else {
			result.Updated++
		}
	}

	if err := r.store.Flush(ctx); err != nil {
		return result, fmt.Errorf("flush final batch: %w", err)
	}

	// Time-based, not absent-from-this-batch: a batch may cover only one
	// marketplace or query subset, so a single miss proves nothing.
	cutoff := now.Add(-r.opts.StalenessThreshold)
	marked, err := r.store.MarkStaleSold(ctx, cutoff, now)
	if err != nil {
		return result, fmt.Errorf("staleness sweep: %w", err)
	}
	result.MarkedSold = marked

	r.logger.Info().
		Int("processed", result.Processed).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("junk", result.SkippedJunk).
		Int("failed", result.Failed).
		Int64("marked_sold", result.MarkedSold).
		Msg("reconcile run complete")

	return result, nil
}

// prepare runs the pure front half for one item: identity extraction, spec
// resolution, junk classification. No store access, so any error here has
// touched nothing.
func (r *Reconciler) prepare(item source.RawListing) preparedItem {
	p := preparedItem{raw: item}

	if item.ItemID == "" {
		p.err = errors.New("item has no marketplace item id")
		return p
	}
	if item.MarketplaceID == "" {
		// Downstream pages are partitioned per marketplace; defaulting
		// silently would file the listing under the wrong channel.
		p.err = errors.New("item has no marketplace id")
		return p
	}
	if item.Price.Value == "" {
		p.err = errors.New("item has no price")
		return p
	}

	price, err := decimal.NewFromString(item.Price.Value)
	if err != nil {
		p.err = fmt.Errorf("parse price %q: %w", item.Price.Value, err)
		return p
	}
	p.price = price.Round(2)

	p.specs = r.resolveSpecs(item)
	p.junk = !parser.IsRealProduct(p.specs)
	return p
}

// resolveSpecs prefers the marketplace's pre-parsed aspects and fills the
// gaps from the title/description extractor.
func (r *Reconciler) resolveSpecs(item source.RawListing) parser.Specs {
	extracted := parser.Extract(item.Title, item.ShortDescription, r.catalog)

	model, cpu, ram, storageSize := item.SpecAspects()
	specs := extracted
	if model != "" {
		specs.Model = model
	}
	if cpu != "" {
		specs.CPU = cpu
	}
	if ram != "" {
		specs.RAM = ram
	}
	if storageSize != "" {
		specs.Storage = storageSize
	}
	return specs
}

// upsert applies one prepared item to the store. Store reads (slug
// resolution) happen before any write is staged, so a failure leaves no
// partial writes behind for this item.
func (r *Reconciler) upsert(
	ctx context.Context,
	p preparedItem,
	now time.Time,
	products map[string]*storage.Product,
	listings map[string]*storage.Listing,
	usedSlugs map[string]bool,
) (created bool, err error) {
	product := products[p.specs.Model]
	if product == nil {
		slug, err := resolveSlug(ctx, r.store, usedSlugs, Slugify(p.specs.Model))
		if err != nil {
			return false, err
		}
		product = &storage.Product{
			ID:          uuid.New(),
			ModelName:   p.specs.Model,
			CPU:         p.specs.CPU,
			CPUFreq:     p.specs.CPUFreq,
			RAM:         p.specs.RAM,
			Storage:     p.specs.Storage,
			StorageType: p.specs.StorageType,
			Slug:        slug,
			CreatedAt:   now,
		}
		r.store.StageProduct(*product)
		products[p.specs.Model] = product
	}

	listing := listings[p.raw.ItemID]
	if listing == nil {
		listing = &storage.Listing{
			ID:            uuid.New(),
			ProductID:     product.ID,
			ExternalID:    p.raw.ItemID,
			MarketplaceID: p.raw.MarketplaceID,
			CategoryID:    p.raw.CategoryID(),
			Title:         p.raw.Title,
			Price:         p.price,
			Currency:      p.raw.Price.Currency,
			Condition:     p.raw.Condition.Display,
			ListingType:   p.raw.ListingType(),
			URL:           p.raw.ItemWebURL,
			Status:        storage.StatusActive,
			FirstSeen:     now,
			LastSeen:      now,
			LastUpdated:   now,
		}
		r.store.StageListing(*listing)
		r.store.StagePriceHistory(storage.PriceHistory{
			ID:        uuid.New(),
			ListingID: listing.ID,
			Price:     p.price,
			Currency:  p.raw.Price.Currency,
			CheckedAt: now,
		})
		listings[p.raw.ItemID] = listing
		return true, nil
	}

	priceChanged := !listing.Price.Equal(p.price)
	if priceChanged {
		listing.Price = p.price
		listing.Currency = p.raw.Price.Currency
	}

	changed := false
	if listing.Title != p.raw.Title {
		listing.Title = p.raw.Title
		changed = true
	}
	if listing.Condition != p.raw.Condition.Display {
		listing.Condition = p.raw.Condition.Display
		changed = true
	}
	if listing.ListingType != p.raw.ListingType() {
		listing.ListingType = p.raw.ListingType()
		changed = true
	}
	if listing.CategoryID != p.raw.CategoryID() {
		listing.CategoryID = p.raw.CategoryID()
		changed = true
	}
	if listing.URL != p.raw.ItemWebURL {
		listing.URL = p.raw.ItemWebURL
		changed = true
	}

	listing.LastSeen = now
	if changed || priceChanged {
		listing.LastUpdated = now
	}
	r.store.StageListingUpdate(*listing)

	// A price change is the only trigger for a history row on update.
	if priceChanged {
		r.store.StagePriceHistory(storage.PriceHistory{
			ID:        uuid.New(),
			ListingID: listing.ID,
			Price:     p.price,
			Currency:  p.raw.Price.Currency,
			CheckedAt: now,
		})
	}

	return false, nil
}

func (r *Reconciler) recordFailure(item source.RawListing, cause error) {
	entry := FailureEntry{
		Item:       item,
		Error:      cause.Error(),
		RetryCount: item.RetryCount + 1,
	}
	r.logger.Warn().
		Str("item_id", item.ItemID).
		Int("retry_count", entry.RetryCount).
		Err(cause).
		Msg("item failed; routed to failure sink")

	if r.failures == nil {
		return
	}
	if err := r.failures.Append(entry); err != nil {
		r.logger.Error().Err(err).Str("item_id", item.ItemID).Msg("failed to append to failure sink")
	}
}
