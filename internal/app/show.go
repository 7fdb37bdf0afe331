package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recently seen listings.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	listings, err := store.ListRecentListings(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		fmt.Fprintln(os.Stdout, "no listings found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Item ID\tModel\tPrice\tStatus\tMarketplace\tLast Seen (UTC)\tTitle")

	for _, row := range listings {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s %s\t%s\t%s\t%s\t%s\n",
			row.ExternalID,
			row.ModelName,
			row.Price.StringFixed(2),
			row.Currency,
			row.Status,
			row.MarketplaceID,
			row.LastSeen.UTC().Format(time.RFC3339),
			sanitizeInline(row.Title),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
