package source

import (
	"encoding/json"
	"strings"
)

// RawListing is one marketplace item as delivered by the Browse API item
// summary endpoint, plus the marketplace it was fetched from. The same shape
// round-trips through the failure and dead-letter sinks, so RetryCount rides
// along with the item.
type RawListing struct {
	ItemID           string     `json:"itemId"`
	Title            string     `json:"title"`
	ShortDescription string     `json:"shortDescription,omitempty"`
	Price            Money      `json:"price"`
	BuyingOptions    []string   `json:"buyingOptions,omitempty"`
	ItemWebURL       string     `json:"itemWebUrl,omitempty"`
	Categories       []Category `json:"categories,omitempty"`
	Condition        Condition  `json:"condition,omitempty"`
	LocalizedAspects []Aspect   `json:"localizedAspects,omitempty"`
	MarketplaceID    string     `json:"marketplaceId,omitempty"`
	RetryCount       int        `json:"retryCount,omitempty"`
}

// Money carries the API's decimal-as-string price representation.
type Money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Category is a single entry of the item's category list.
type Category struct {
	CategoryID string `json:"categoryId"`
}

// Aspect is one pre-parsed item specific ("Processor" -> "Intel Core i7").
type Aspect struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Condition normalises the upstream condition field at the boundary: some
// payloads carry a plain display string, others an object with a
// conditionDisplayName. Downstream code only ever sees the string.
type Condition struct {
	Display string
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Display = s
		return nil
	}

	var obj struct {
		ConditionDisplayName string `json:"conditionDisplayName"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Display = obj.ConditionDisplayName
	return nil
}

func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Display)
}

// CategoryID returns the first category identifier, or "".
func (r RawListing) CategoryID() string {
	if len(r.Categories) == 0 {
		return ""
	}
	return r.Categories[0].CategoryID
}

// ListingType joins the buying-option tags into the stored representation.
func (r RawListing) ListingType() string {
	return strings.Join(r.BuyingOptions, ",")
}

// SpecAspects pulls model/cpu/ram/storage out of the pre-parsed item
// specifics, when present. The aspect names vary per marketplace; the
// alternates here are the ones observed in live payloads.
func (r RawListing) SpecAspects() (model, cpu, ram, storage string) {
	aspects := make(map[string]string, len(r.LocalizedAspects))
	for _, a := range r.LocalizedAspects {
		aspects[strings.ToLower(a.Name)] = a.Value
	}

	model = aspects["model"]
	cpu = aspects["processor"]
	ram = aspects["ram size"]
	if ram == "" {
		ram = aspects["ram for multitasking"]
	}
	storage = aspects["ssd capacity"]
	if storage == "" {
		storage = aspects["hard drive capacity"]
	}
	return model, cpu, ram, storage
}
