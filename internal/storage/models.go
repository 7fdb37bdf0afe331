package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing lifecycle states. Transitions run ACTIVE -> SOLD only.
const (
	StatusActive = "ACTIVE"
	StatusSold   = "SOLD"
)

// Product is a de-duplicated laptop configuration. ModelName is the unique
// key; spec fields are fixed at creation (the repair flow reassigns listings
// rather than rewriting products).
type Product struct {
	ID          uuid.UUID
	ModelName   string
	CPU         string
	CPUFreq     string
	RAM         string
	Storage     string
	StorageType string
	Slug        string
	CreatedAt   time.Time
}

// Listing is one marketplace item, keyed by the marketplace's item id.
type Listing struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	ExternalID    string
	MarketplaceID string
	CategoryID    string
	Title         string
	Price         decimal.Decimal
	Currency      string
	Condition     string
	ListingType   string
	URL           string
	Status        string
	FirstSeen     time.Time
	LastSeen      time.Time
	LastUpdated   time.Time
	SoldAt        *time.Time
}

// PriceHistory is one append-only price observation for a listing.
type PriceHistory struct {
	ID        uuid.UUID
	ListingID uuid.UUID
	Price     decimal.Decimal
	Currency  string
	CheckedAt time.Time
}

// ListingRow pairs a listing with its product's model name for the read
// surfaces (show, repair).
type ListingRow struct {
	Listing
	ModelName string
}

// PricePoint is one exported price observation.
type PricePoint struct {
	CheckedAt time.Time
	Price     decimal.Decimal
	Currency  string
}
