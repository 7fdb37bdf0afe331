package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"thinkpad-price-tracker/internal/catalog"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	productsByModelSQL = `SELECT
        id, model_name, cpu, cpu_freq, ram, storage, storage_type, slug, created_at
    FROM products
    WHERE model_name = ANY($1);`

	listingsByExternalSQL = `SELECT
        id, product_id, external_id, marketplace_id, category_id, title,
        price, currency, condition, listing_type, url, status,
        first_seen, last_seen, last_updated, sold_at
    FROM listings
    WHERE external_id = ANY($1);`

	insertProductSQL = `INSERT INTO products (
        id, model_name, cpu, cpu_freq, ram, storage, storage_type, slug, created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (model_name) DO NOTHING;`

	insertListingSQL = `INSERT INTO listings (
        id, product_id, external_id, marketplace_id, category_id, title,
        price, currency, condition, listing_type, url, status,
        first_seen, last_seen, last_updated
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
    )
    ON CONFLICT (external_id) DO NOTHING;`

	updateListingSQL = `UPDATE listings
    SET title        = $2,
        price        = $3,
        currency     = $4,
        condition    = $5,
        listing_type = $6,
        category_id  = $7,
        url          = $8,
        last_seen    = $9,
        last_updated = $10
    WHERE id = $1;`

	insertPriceHistorySQL = `INSERT INTO price_history (
        id, listing_id, price, currency, checked_at
    ) VALUES (
        $1,$2,$3,$4,$5
    );`

	slugExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1);`

	markStaleSoldSQL = `UPDATE listings
    SET status = 'SOLD', sold_at = $2, last_updated = $2
    WHERE status = 'ACTIVE' AND last_seen < $1;`

	listRecentListingsSQL = `SELECT
        l.id, l.product_id, l.external_id, l.marketplace_id, l.category_id,
        l.title, l.price, l.currency, l.condition, l.listing_type, l.url,
        l.status, l.first_seen, l.last_seen, l.last_updated, l.sold_at,
        p.model_name
    FROM listings l
    JOIN products p ON p.id = l.product_id
    ORDER BY l.last_seen DESC
    LIMIT $1;`

	listAllListingsSQL = `SELECT
        l.id, l.product_id, l.external_id, l.marketplace_id, l.category_id,
        l.title, l.price, l.currency, l.condition, l.listing_type, l.url,
        l.status, l.first_seen, l.last_seen, l.last_updated, l.sold_at,
        p.model_name
    FROM listings l
    JOIN products p ON p.id = l.product_id
    ORDER BY l.first_seen;`

	priceHistoryBySlugSQL = `SELECT h.checked_at, h.price, h.currency
    FROM price_history h
    JOIN listings l ON l.id = h.listing_id
    JOIN products p ON p.id = l.product_id
    WHERE p.slug = $1
      AND h.checked_at >= $2
      AND h.checked_at < $3
    ORDER BY h.checked_at;`

	productByModelSQL = `SELECT
        id, model_name, cpu, cpu_freq, ram, storage, storage_type, slug, created_at
    FROM products
    WHERE model_name = $1;`

	listProductsSQL = `SELECT
        id, model_name, cpu, cpu_freq, ram, storage, storage_type, slug, created_at
    FROM products
    ORDER BY model_name;`

	reassignListingSQL = `UPDATE listings SET product_id = $2, last_updated = $3 WHERE id = $1;`

	deleteProductSQL = `DELETE FROM products WHERE id = $1;`

	deleteListingsOutsideCategorySQL = `DELETE FROM listings WHERE category_id IS DISTINCT FROM $1;`

	deleteOrphanProductsSQL = `DELETE FROM products p
    WHERE NOT EXISTS (SELECT 1 FROM listings l WHERE l.product_id = p.id);`

	catalogModelsSQL  = `SELECT name FROM models ORDER BY id;`
	catalogCPUsSQL    = `SELECT name FROM cpu ORDER BY id;`
	catalogRAMSQL     = `SELECT size FROM ram ORDER BY id;`
	catalogStorageSQL = `SELECT size FROM storage ORDER BY id;`
)

// ReconcileStore is the persistence surface the reconciler runs against.
// Writes are staged into a batch and only hit the database on Flush, so an
// item that fails mid-processing leaves nothing behind.
type ReconcileStore interface {
	ProductsByModelName(ctx context.Context, names []string) (map[string]*Product, error)
	ListingsByExternalID(ctx context.Context, ids []string) (map[string]*Listing, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	StageProduct(p Product)
	StageListing(l Listing)
	StageListingUpdate(l Listing)
	StagePriceHistory(h PriceHistory)
	Flush(ctx context.Context) error
	MarkStaleSold(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// CatalogStore loads the spec reference vocabulary.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (catalog.Catalog, error)
}

// Store implements the persistence surfaces on top of a pgx pool.
type Store struct {
	pool    *pgxpool.Pool
	pending *pgx.Batch
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, pending: &pgx.Batch{}}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// ProductsByModelName bulk-loads products keyed by model name.
func (s *Store) ProductsByModelName(ctx context.Context, names []string) (map[string]*Product, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return map[string]*Product{}, nil
	}

	rows, queryErr := pool.Query(ctx, productsByModelSQL, names)
	if queryErr != nil {
		return nil, fmt.Errorf("hydrate products: %w", queryErr)
	}
	defer rows.Close()

	products := make(map[string]*Product)
	for rows.Next() {
		product, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		products[product.ModelName] = product
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return products, nil
}

// ListingsByExternalID bulk-loads listings keyed by their marketplace item id.
func (s *Store) ListingsByExternalID(ctx context.Context, ids []string) (map[string]*Listing, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return map[string]*Listing{}, nil
	}

	rows, queryErr := pool.Query(ctx, listingsByExternalSQL, ids)
	if queryErr != nil {
		return nil, fmt.Errorf("hydrate listings: %w", queryErr)
	}
	defer rows.Close()

	listings := make(map[string]*Listing)
	for rows.Next() {
		listing, scanErr := scanListing(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		listings[listing.ExternalID] = listing
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return listings, nil
}

// SlugExists reports whether a product already claims the slug.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	var exists bool
	if scanErr := pool.QueryRow(ctx, slugExistsSQL, slug).Scan(&exists); scanErr != nil {
		return false, fmt.Errorf("check slug: %w", scanErr)
	}
	return exists, nil
}

// StageProduct queues a product insert for the next flush.
func (s *Store) StageProduct(p Product) {
	s.pending.Queue(insertProductSQL,
		p.ID, p.ModelName, p.CPU, p.CPUFreq, p.RAM, p.Storage, p.StorageType, p.Slug, p.CreatedAt)
}

// StageListing queues a listing insert for the next flush.
func (s *Store) StageListing(l Listing) {
	s.pending.Queue(insertListingSQL,
		l.ID, l.ProductID, l.ExternalID, l.MarketplaceID, nullable(l.CategoryID), l.Title,
		l.Price.StringFixed(2), l.Currency, nullable(l.Condition), l.ListingType,
		l.URL, l.Status, l.FirstSeen, l.LastSeen, l.LastUpdated)
}

// StageListingUpdate queues an update of the tracked listing fields.
func (s *Store) StageListingUpdate(l Listing) {
	s.pending.Queue(updateListingSQL,
		l.ID, l.Title, l.Price.StringFixed(2), l.Currency, nullable(l.Condition),
		l.ListingType, nullable(l.CategoryID), l.URL, l.LastSeen, l.LastUpdated)
}

// StagePriceHistory queues a price observation append.
func (s *Store) StagePriceHistory(h PriceHistory) {
	id := h.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	s.pending.Queue(insertPriceHistorySQL,
		id, h.ListingID, h.Price.StringFixed(2), h.Currency, h.CheckedAt)
}

// Flush sends all staged writes in one round trip.
func (s *Store) Flush(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if s.pending.Len() == 0 {
		return nil
	}

	batch := s.pending
	s.pending = &pgx.Batch{}

	if execErr := pool.SendBatch(ctx, batch).Close(); execErr != nil {
		return fmt.Errorf("flush staged writes: %w", execErr)
	}
	return nil
}

// MarkStaleSold transitions ACTIVE listings unseen since cutoff to SOLD.
func (s *Store) MarkStaleSold(ctx context.Context, cutoff, now time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, markStaleSoldSQL, cutoff, now)
	if execErr != nil {
		return 0, fmt.Errorf("mark stale sold: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

// ListRecentListings lists listings ordered by most recently seen.
func (s *Store) ListRecentListings(ctx context.Context, limit int) ([]ListingRow, error) {
	return s.queryListingRows(ctx, listRecentListingsSQL, limit)
}

// ListAllListings returns every listing joined with its product model name.
func (s *Store) ListAllListings(ctx context.Context) ([]ListingRow, error) {
	return s.queryListingRows(ctx, listAllListingsSQL)
}

func (s *Store) queryListingRows(ctx context.Context, sql string, args ...any) ([]ListingRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, sql, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list listings: %w", queryErr)
	}
	defer rows.Close()

	result := make([]ListingRow, 0)
	for rows.Next() {
		row, scanErr := scanListingRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		result = append(result, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return result, nil
}

// ListPriceHistory lists price observations for a product slug in a window.
func (s *Store) ListPriceHistory(ctx context.Context, slug string, from, to time.Time) ([]PricePoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, priceHistoryBySlugSQL, slug, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list price history: %w", queryErr)
	}
	defer rows.Close()

	points := make([]PricePoint, 0)
	for rows.Next() {
		var point PricePoint
		var priceStr string
		if err := rows.Scan(&point.CheckedAt, &priceStr, &point.Currency); err != nil {
			return nil, err
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse history price: %w", convErr)
		}
		point.Price = price
		points = append(points, point)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}

// ProductByModelName fetches a single product, or nil when absent.
func (s *Store) ProductByModelName(ctx context.Context, name string) (*Product, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, productByModelSQL, name)
	if queryErr != nil {
		return nil, fmt.Errorf("product by model: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanProduct(rows)
}

// ListProducts returns every product.
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listProductsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list products: %w", queryErr)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		product, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		products = append(products, *product)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return products, nil
}

// ReassignListing moves a listing to another product.
func (s *Store) ReassignListing(ctx context.Context, listingID, productID uuid.UUID, now time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, reassignListingSQL, listingID, productID, now); execErr != nil {
		return fmt.Errorf("reassign listing: %w", execErr)
	}
	return nil
}

// DeleteProduct removes a product; listings and history cascade.
func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteProductSQL, id); execErr != nil {
		return fmt.Errorf("delete product: %w", execErr)
	}
	return nil
}

// DeleteListingsOutsideCategory removes listings outside the tracked category.
func (s *Store) DeleteListingsOutsideCategory(ctx context.Context, categoryID string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteListingsOutsideCategorySQL, categoryID)
	if execErr != nil {
		return 0, fmt.Errorf("delete off-category listings: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

// DeleteOrphanProducts removes products that no longer own any listing.
func (s *Store) DeleteOrphanProducts(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteOrphanProductsSQL)
	if execErr != nil {
		return 0, fmt.Errorf("delete orphan products: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

// LoadCatalog reads the spec reference tables; empty tables fall back to the
// built-in seed vocabulary.
func (s *Store) LoadCatalog(ctx context.Context) (catalog.Catalog, error) {
	pool, err := s.getPool()
	if err != nil {
		return catalog.Catalog{}, err
	}

	var cat catalog.Catalog
	for _, part := range []struct {
		sql  string
		dest *[]string
	}{
		{catalogModelsSQL, &cat.Models},
		{catalogCPUsSQL, &cat.CPUs},
		{catalogRAMSQL, &cat.RAMSizes},
		{catalogStorageSQL, &cat.StorageSizes},
	} {
		values, queryErr := s.queryStrings(ctx, pool, part.sql)
		if queryErr != nil {
			return catalog.Catalog{}, queryErr
		}
		*part.dest = values
	}

	if cat.IsEmpty() {
		return catalog.Default(), nil
	}
	return cat, nil
}

func (s *Store) queryStrings(ctx context.Context, pool *pgxpool.Pool, sql string) ([]string, error) {
	rows, err := pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func scanProduct(rows pgx.Rows) (*Product, error) {
	var (
		p           Product
		cpu         *string
		cpuFreq     *string
		ram         *string
		storageSize *string
		storageType *string
		slug        *string
	)
	if err := rows.Scan(
		&p.ID, &p.ModelName, &cpu, &cpuFreq, &ram, &storageSize, &storageType, &slug, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.CPU = deref(cpu)
	p.CPUFreq = deref(cpuFreq)
	p.RAM = deref(ram)
	p.Storage = deref(storageSize)
	p.StorageType = deref(storageType)
	p.Slug = deref(slug)
	return &p, nil
}

func scanListing(rows pgx.Rows) (*Listing, error) {
	var (
		l          Listing
		categoryID *string
		condition  *string
		priceStr   string
	)
	if err := rows.Scan(
		&l.ID, &l.ProductID, &l.ExternalID, &l.MarketplaceID, &categoryID, &l.Title,
		&priceStr, &l.Currency, &condition, &l.ListingType, &l.URL, &l.Status,
		&l.FirstSeen, &l.LastSeen, &l.LastUpdated, &l.SoldAt,
	); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("parse listing price: %w", err)
	}
	l.Price = price
	l.CategoryID = deref(categoryID)
	l.Condition = deref(condition)
	return &l, nil
}

func scanListingRow(rows pgx.Rows) (ListingRow, error) {
	var (
		row        ListingRow
		categoryID *string
		condition  *string
		priceStr   string
	)
	if err := rows.Scan(
		&row.ID, &row.ProductID, &row.ExternalID, &row.MarketplaceID, &categoryID, &row.Title,
		&priceStr, &row.Currency, &condition, &row.ListingType, &row.URL, &row.Status,
		&row.FirstSeen, &row.LastSeen, &row.LastUpdated, &row.SoldAt,
		&row.ModelName,
	); err != nil {
		return ListingRow{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return ListingRow{}, fmt.Errorf("parse listing price: %w", err)
	}
	row.Price = price
	row.CategoryID = deref(categoryID)
	row.Condition = deref(condition)
	return row, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
