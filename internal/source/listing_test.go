package source

import (
	"encoding/json"
	"testing"
)

func TestConditionUnmarshalString(t *testing.T) {
	var item RawListing
	payload := `{"itemId":"v1|1|0","condition":"Used"}`
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Condition.Display != "Used" {
		t.Fatalf("expected Used, got %q", item.Condition.Display)
	}
}

func TestConditionUnmarshalObject(t *testing.T) {
	var item RawListing
	payload := `{"itemId":"v1|1|0","condition":{"conditionDisplayName":"Open box"}}`
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Condition.Display != "Open box" {
		t.Fatalf("expected Open box, got %q", item.Condition.Display)
	}
}

func TestConditionMarshalsAsString(t *testing.T) {
	data, err := json.Marshal(Condition{Display: "Used"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"Used"` {
		t.Fatalf("expected plain string, got %s", data)
	}
}

func TestCategoryIDFirstWins(t *testing.T) {
	item := RawListing{Categories: []Category{{CategoryID: "177"}, {CategoryID: "175672"}}}
	if got := item.CategoryID(); got != "177" {
		t.Fatalf("expected 177, got %q", got)
	}
	if got := (RawListing{}).CategoryID(); got != "" {
		t.Fatalf("expected empty category, got %q", got)
	}
}

func TestListingTypeJoinsBuyingOptions(t *testing.T) {
	item := RawListing{BuyingOptions: []string{"FIXED_PRICE", "BEST_OFFER"}}
	if got := item.ListingType(); got != "FIXED_PRICE,BEST_OFFER" {
		t.Fatalf("unexpected listing type %q", got)
	}
	if got := (RawListing{}).ListingType(); got != "" {
		t.Fatalf("expected empty listing type, got %q", got)
	}
}

func TestSpecAspects(t *testing.T) {
	item := RawListing{LocalizedAspects: []Aspect{
		{Name: "Model", Value: "T480"},
		{Name: "Processor", Value: "Intel Core i5-8350U"},
		{Name: "RAM Size", Value: "16 GB"},
		{Name: "SSD Capacity", Value: "512 GB"},
	}}

	model, cpu, ram, storage := item.SpecAspects()
	if model != "T480" || cpu != "Intel Core i5-8350U" || ram != "16 GB" || storage != "512 GB" {
		t.Fatalf("unexpected aspects: %q %q %q %q", model, cpu, ram, storage)
	}
}

func TestSpecAspectsAlternateNames(t *testing.T) {
	item := RawListing{LocalizedAspects: []Aspect{
		{Name: "RAM for Multitasking", Value: "8 GB"},
		{Name: "Hard Drive Capacity", Value: "500 GB"},
	}}

	model, cpu, ram, storage := item.SpecAspects()
	if model != "" || cpu != "" {
		t.Fatalf("expected empty model/cpu, got %q %q", model, cpu)
	}
	if ram != "8 GB" || storage != "500 GB" {
		t.Fatalf("unexpected alternates: %q %q", ram, storage)
	}
}

func TestSpecAspectsPrimaryBeatsAlternate(t *testing.T) {
	item := RawListing{LocalizedAspects: []Aspect{
		{Name: "SSD Capacity", Value: "512 GB"},
		{Name: "Hard Drive Capacity", Value: "1 TB"},
	}}

	_, _, _, storage := item.SpecAspects()
	if storage != "512 GB" {
		t.Fatalf("ssd capacity must win over hard drive capacity, got %q", storage)
	}
}
