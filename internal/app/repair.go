package app

import (
	"context"
	"time"

	"thinkpad-price-tracker/internal/parser"
)

// Repair re-parses every stored listing title and reattaches listings whose
// parsed model disagrees with their product. The reconcile core never
// corrects product assignment after creation; this is the separate flow
// that does.
func (a *App) Repair(ctx context.Context, opts RepairOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	cat, err := store.LoadCatalog(ctx)
	if err != nil {
		return err
	}

	listings, err := store.ListAllListings(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	moved := 0
	for _, row := range listings {
		specs := parser.Extract(row.Title, "", cat)
		if specs.Model == parser.Unknown || specs.Model == row.ModelName {
			continue
		}

		target, err := store.ProductByModelName(ctx, specs.Model)
		if err != nil {
			return err
		}
		if target == nil {
			// The correct product does not exist yet; the next sync run will
			// create it and pick the listing up.
			continue
		}

		a.Logger.Info().
			Str("item_id", row.ExternalID).
			Str("from", row.ModelName).
			Str("to", specs.Model).
			Bool("dry_run", opts.DryRun).
			Msg("reassigning listing")

		if opts.DryRun {
			continue
		}
		if err := store.ReassignListing(ctx, row.ID, target.ID, now); err != nil {
			return err
		}
		moved++
	}

	a.Logger.Info().Int("reassigned", moved).Int("scanned", len(listings)).Msg("repair complete")
	return nil
}
