package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultApifyBaseURL = "https://api.apify.com/v2"

// Apify fetches scraped post records from an Apify dataset. The actor
// run itself is managed outside this pipeline; we only page through the
// run's dataset items.
type Apify struct {
	client    *http.Client
	baseURL   string
	token     string
	datasetID string
	dataset   string
	pageSize  int
}

// NewApify creates a collector for one Apify dataset, tagged with a
// calibration dataset name.
func NewApify(baseURL, token, datasetID, dataset string) *Apify {
	if baseURL == "" {
		baseURL = defaultApifyBaseURL
	}
	return &Apify{
		client:    &http.Client{Timeout: 60 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		datasetID: datasetID,
		dataset:   dataset,
		pageSize:  1000,
	}
}

func (a *Apify) Name() SourceType { return SourceApify }
func (a *Apify) Dataset() string  { return a.dataset }

func (a *Apify) Fetch(ctx context.Context) ([]RawPost, error) {
	var all []RawPost
	for offset := 0; ; offset += a.pageSize {
		page, err := a.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < a.pageSize {
			return all, nil
		}
	}
}

func (a *Apify) fetchPage(ctx context.Context, offset int) ([]RawPost, error) {
	q := url.Values{}
	q.Set("token", a.token)
	q.Set("format", "json")
	q.Set("clean", "true")
	q.Set("offset", fmt.Sprint(offset))
	q.Set("limit", fmt.Sprint(a.pageSize))

	reqURL := fmt.Sprintf("%s/datasets/%s/items?%s", a.baseURL, a.datasetID, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create apify request: %w", err)
	}
	req.Header.Set("User-Agent", "viralscope/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch apify dataset %s: %w", a.datasetID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apify dataset %s status %d", a.datasetID, resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var raws []map[string]any
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode apify dataset %s: %w", a.datasetID, err)
	}
	return CanonicalizeAll(raws), nil
}
