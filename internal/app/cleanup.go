package app

import (
	"context"

	"thinkpad-price-tracker/internal/parser"
)

// Cleanup removes junk products (with their listings), listings outside the
// tracked category, and products left without any listing. The reconcile
// core never deletes; this maintenance pass does.
func (a *App) Cleanup(ctx context.Context, opts CleanupOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	products, err := store.ListProducts(ctx)
	if err != nil {
		return err
	}

	deletedProducts := 0
	for _, product := range products {
		specs := parser.Specs{
			Model:   product.ModelName,
			CPU:     product.CPU,
			RAM:     product.RAM,
			Storage: product.Storage,
		}
		if parser.IsRealProduct(specs) {
			continue
		}

		a.Logger.Info().
			Str("model", product.ModelName).
			Bool("dry_run", opts.DryRun).
			Msg("junk product detected")

		if opts.DryRun {
			continue
		}
		if err := store.DeleteProduct(ctx, product.ID); err != nil {
			return err
		}
		deletedProducts++
	}

	deletedListings := int64(0)
	orphaned := int64(0)
	if !opts.DryRun {
		if a.Config.Ebay.CategoryID != "" {
			deletedListings, err = store.DeleteListingsOutsideCategory(ctx, a.Config.Ebay.CategoryID)
			if err != nil {
				return err
			}
		}

		orphaned, err = store.DeleteOrphanProducts(ctx)
		if err != nil {
			return err
		}
	}

	a.Logger.Info().
		Int("junk_products", deletedProducts).
		Int64("off_category_listings", deletedListings).
		Int64("orphaned_products", orphaned).
		Bool("dry_run", opts.DryRun).
		Msg("cleanup complete")

	return nil
}
