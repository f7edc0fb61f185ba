// Package fetcher downloads raw listing batches from crawler endpoints.
package fetcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"propbot/internal/config"
	"propbot/internal/model"
)

const maxBodySize = 10 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads and decodes raw listing batches.
type Fetcher struct {
	client HTTPClient
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads the batch of src and decodes it according to its format.
// Records without a source are attributed to src.
func (f *Fetcher) Fetch(ctx context.Context, src config.Source) ([]model.RawListing, error) {
	body, err := f.get(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	var records []model.RawListing
	switch src.Format {
	case config.FormatRSS:
		records, err = ParseRSS(body)
	default:
		records, err = ParseJSON(body)
	}
	if err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].Source == "" {
			records[i].Source = src.Name
		}
	}
	return records, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "PropBot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// crawlRecord accepts both the normalized record shape and the crawler's
// extraction shape, which splits prices by currency and lists amenities as flags.
type crawlRecord struct {
	model.RawListing
	PriceUSD  float64 `json:"price_usd"`
	PriceARS  float64 `json:"price_ars"`
	Elevator  bool    `json:"elevator"`
	Parking   bool    `json:"parking"`
	Balcony   bool    `json:"balcony"`
	Terrace   bool    `json:"terrace"`
	Furnished bool    `json:"furnished"`
}

func (c crawlRecord) toRaw() model.RawListing {
	r := c.RawListing
	if r.Price == 0 {
		switch {
		case c.PriceUSD > 0:
			r.Price, r.Currency = c.PriceUSD, "USD"
		case c.PriceARS > 0:
			r.Price, r.Currency = c.PriceARS, "ARS"
		}
	}
	for _, flag := range []struct {
		set  bool
		name string
	}{
		{c.Elevator, "elevator"},
		{c.Parking, "parking"},
		{c.Balcony, "balcony"},
		{c.Terrace, "terrace"},
		{c.Furnished, "furnished"},
	} {
		if flag.set {
			r.Features = append(r.Features, flag.name)
		}
	}
	return r
}

// ParseJSON decodes a JSON array of records or a crawler response of the form
// {"results":[{"extracted_content":[...]}]}.
func ParseJSON(body []byte) ([]model.RawListing, error) {
	body = bytes.TrimSpace(body)
	var recs []crawlRecord

	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &recs); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	} else {
		var envelope struct {
			Results []struct {
				ExtractedContent json.RawMessage `json:"extracted_content"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode crawl response: %w", err)
		}
		for _, res := range envelope.Results {
			var part []crawlRecord
			if err := decodeExtracted(res.ExtractedContent, &part); err != nil {
				return nil, err
			}
			recs = append(recs, part...)
		}
	}

	out := make([]model.RawListing, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toRaw())
	}
	return out, nil
}

// Crawlers return extracted_content either inline or as a JSON-encoded string.
func decodeExtracted(raw json.RawMessage, dst *[]crawlRecord) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode extracted content: %w", err)
		}
		raw = json.RawMessage(s)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode extracted content: %w", err)
	}
	return nil
}

// ParseRSS converts feed items into raw records. Listing attributes are read
// from custom item elements (price, currency, rooms, area, location,
// neighborhood, property_type); categories become features.
func ParseRSS(body []byte) ([]model.RawListing, error) {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	out := make([]model.RawListing, 0, len(feed.Items))
	for _, item := range feed.Items {
		r := model.RawListing{
			ExternalID:   ItemGUID(item),
			URL:          item.Link,
			Title:        item.Title,
			Description:  item.Description,
			Features:     item.Categories,
			PropertyType: custom(item, "property_type"),
			Location:     custom(item, "location"),
			Neighborhood: custom(item, "neighborhood"),
			Currency:     custom(item, "currency"),
			PublishedAt:  item.PublishedParsed,
		}
		r.Price = ParsePrice(custom(item, "price"))
		r.Area = ParsePrice(custom(item, "area"))
		if rooms, err := strconv.Atoi(custom(item, "rooms")); err == nil {
			r.Rooms = rooms
		}
		if item.Image != nil {
			r.Photos = appendUnique(r.Photos, item.Image.URL)
		}
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") {
				r.Photos = appendUnique(r.Photos, enc.URL)
			}
		}
		if r.PublishedAt != nil {
			t := r.PublishedAt.UTC().Truncate(time.Second)
			r.PublishedAt = &t
		}
		out = append(out, r)
	}
	return out, nil
}

func appendUnique(list []string, v string) []string {
	if v == "" || slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

func custom(item *gofeed.Item, key string) string {
	if item.Custom == nil {
		return ""
	}
	return strings.TrimSpace(item.Custom[key])
}

// ItemGUID returns the GUID for a feed item.
// If the item has no GUID, a SHA-256 hash of title+link is used.
func ItemGUID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

// ParsePrice extracts the first number from listing text such as
// "USD 150.000", "95,500.50" or "55 m2". A lone separator followed by exactly
// three digits is a thousands separator; otherwise the last separator is the
// decimal point.
func ParsePrice(s string) float64 {
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && strings.IndexByte("0123456789.,", s[end]) >= 0 {
		end++
	}
	digits := strings.TrimRight(s[start:end], ".,")

	if lastSep := strings.LastIndexAny(digits, ".,"); lastSep >= 0 {
		frac := digits[lastSep+1:]
		mixed := strings.Contains(digits, ".") && strings.Contains(digits, ",")
		seps := strings.Count(digits, ".") + strings.Count(digits, ",")
		strip := strings.NewReplacer(".", "", ",", "")
		if !mixed && (len(frac) == 3 || seps > 1) {
			digits = strip.Replace(digits)
		} else {
			digits = strip.Replace(digits[:lastSep]) + "." + frac
		}
	}

	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0
	}
	return v
}
