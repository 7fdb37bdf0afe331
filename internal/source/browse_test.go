package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func testBrowseServer(t *testing.T, tokenCalls *int32, search http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("token request method = %s", r.Method)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
			t.Error("token request missing basic auth")
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_in":   7200,
		})
	})
	mux.HandleFunc(searchPath, search)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testBrowseClient(server *httptest.Server) *BrowseClient {
	return NewBrowseClient(BrowseOptions{
		BaseURL:      server.URL,
		AuthURL:      server.URL + "/identity/v1/oauth2/token",
		ClientID:     "id",
		ClientSecret: "secret",
		CampaignID:   "camp-1",
		CategoryID:   "177",
	}, zerolog.Nop())
}

func TestBrowseFetch(t *testing.T) {
	var tokenCalls int32
	server := testBrowseServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("X-EBAY-C-MARKETPLACE-ID"); got != "EBAY_US" {
			t.Errorf("marketplace header = %q", got)
		}
		if got := r.Header.Get("X-EBAY-C-ENDUSERCTX"); got != "affiliateCampaignId=camp-1" {
			t.Errorf("enduserctx header = %q", got)
		}
		q := r.URL.Query()
		if q.Get("q") != "thinkpad" || q.Get("limit") != "50" || q.Get("category_id") != "177" {
			t.Errorf("unexpected query: %v", q)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"itemSummaries": []map[string]any{
				{
					"itemId":    "v1|100|0",
					"title":     "Lenovo ThinkPad T480",
					"price":     map[string]string{"value": "199.99", "currency": "USD"},
					"condition": "Used",
				},
			},
		})
	})

	client := testBrowseClient(server)
	items, err := client.Fetch(context.Background(), "EBAY_US", "thinkpad", 50)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ItemID != "v1|100|0" || items[0].Price.Value != "199.99" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if items[0].MarketplaceID != "EBAY_US" {
		t.Fatalf("fetch must stamp the marketplace, got %q", items[0].MarketplaceID)
	}
}

func TestBrowseFetchReusesToken(t *testing.T) {
	var tokenCalls int32
	server := testBrowseServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"itemSummaries": []map[string]any{}})
	})

	client := testBrowseClient(server)
	for i := 0; i < 3; i++ {
		if _, err := client.Fetch(context.Background(), "EBAY_US", "thinkpad", 10); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}

	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Fatalf("expected 1 token request, got %d", got)
	}
}

func TestBrowseFetchAPIError(t *testing.T) {
	var tokenCalls int32
	server := testBrowseServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"rate limited"}]}`, http.StatusTooManyRequests)
	})

	client := testBrowseClient(server)
	_, err := client.Fetch(context.Background(), "EBAY_US", "thinkpad", 10)
	if err == nil {
		t.Fatal("expected error on non-200 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error must carry the status code, got %v", err)
	}
}

func TestBrowseFetchRequiresMarketplace(t *testing.T) {
	client := NewBrowseClient(BrowseOptions{BaseURL: "https://api.example.test"}, zerolog.Nop())
	if _, err := client.Fetch(context.Background(), "", "thinkpad", 10); err == nil {
		t.Fatal("expected error for missing marketplace")
	}
}

func TestBrowseFetchRequiresCredentials(t *testing.T) {
	client := NewBrowseClient(BrowseOptions{
		BaseURL: "https://api.example.test",
		AuthURL: "https://auth.example.test/token",
	}, zerolog.Nop())
	_, err := client.Fetch(context.Background(), "EBAY_US", "thinkpad", 10)
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}
