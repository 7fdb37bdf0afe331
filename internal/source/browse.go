package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const searchPath = "/buy/browse/v1/item_summary/search"

// ListingSource fetches raw listings for one marketplace and query.
type ListingSource interface {
	Fetch(ctx context.Context, marketplace, query string, limit int) ([]RawListing, error)
}

// BrowseOptions parameterise the Browse API client.
type BrowseOptions struct {
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
	CampaignID   string
	CategoryID   string
	Timeout      time.Duration
}

// BrowseClient talks to the marketplace Browse API using the
// client-credentials OAuth flow. Tokens are cached until shortly before
// expiry.
type BrowseClient struct {
	opts   BrowseOptions
	logger zerolog.Logger
	client *http.Client

	tokenMux    sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewBrowseClient constructs a Browse API client.
func NewBrowseClient(opts BrowseOptions, logger zerolog.Logger) *BrowseClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BrowseClient{
		opts:   opts,
		logger: logger.With().Str("component", "browse_client").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch runs one item summary search against the given marketplace.
func (b *BrowseClient) Fetch(ctx context.Context, marketplace, query string, limit int) ([]RawListing, error) {
	if b.opts.BaseURL == "" {
		return nil, errors.New("browse base url not configured")
	}
	if marketplace == "" {
		return nil, errors.New("marketplace id required")
	}
	if limit <= 0 {
		limit = 100
	}

	token, err := b.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire access token: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	if b.opts.CategoryID != "" {
		params.Set("category_id", b.opts.CategoryID)
	}

	endpoint := strings.TrimRight(b.opts.BaseURL, "/") + searchPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", marketplace)
	if b.opts.CampaignID != "" {
		req.Header.Set("X-EBAY-C-ENDUSERCTX", "affiliateCampaignId="+b.opts.CampaignID)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("browse api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result struct {
		ItemSummaries []RawListing `json:"itemSummaries"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := result.ItemSummaries
	for i := range items {
		items[i].MarketplaceID = marketplace
	}

	b.logger.Debug().Str("marketplace", marketplace).Int("items", len(items)).Msg("search page fetched")
	return items, nil
}

func (b *BrowseClient) getToken(ctx context.Context) (string, error) {
	b.tokenMux.Lock()
	defer b.tokenMux.Unlock()

	if b.token != "" && time.Now().Before(b.tokenExpiry) {
		return b.token, nil
	}

	if b.opts.ClientID == "" || b.opts.ClientSecret == "" {
		return "", errors.New("client credentials not configured")
	}
	if b.opts.AuthURL == "" {
		return "", errors.New("auth url not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "https://api.ebay.com/oauth/api_scope")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(b.opts.ClientID + ":" + b.opts.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenRes struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenRes); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenRes.AccessToken == "" {
		return "", errors.New("token endpoint returned empty access_token")
	}

	b.token = tokenRes.AccessToken
	expiry := time.Duration(tokenRes.ExpiresIn) * time.Second
	if expiry <= time.Minute {
		expiry = 2 * time.Minute
	}
	b.tokenExpiry = time.Now().Add(expiry - 30*time.Second)

	return b.token, nil
}

var _ ListingSource = (*BrowseClient)(nil)
