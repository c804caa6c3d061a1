package ingest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Feed collects posts for a set of accounts through an RSS bridge
// (RSSHub- or Nitter-style: one feed per account). Bridges carry no
// engagement counters, so likes and views normalize to zero; feed posts
// matter for account coverage, not labeling.
type Feed struct {
	client    *http.Client
	parser    *gofeed.Parser
	bridgeURL string
	accounts  []string
	dataset   string
}

// NewFeed creates a bridge collector. bridgeURL is the base URL; each
// account's feed is fetched from bridgeURL/<account>/rss.
func NewFeed(bridgeURL string, accounts []string, dataset string) *Feed {
	return &Feed{
		client:    &http.Client{Timeout: 30 * time.Second},
		parser:    gofeed.NewParser(),
		bridgeURL: strings.TrimRight(bridgeURL, "/"),
		accounts:  accounts,
		dataset:   dataset,
	}
}

func (f *Feed) Name() SourceType { return SourceFeed }
func (f *Feed) Dataset() string  { return f.dataset }

func (f *Feed) Fetch(ctx context.Context) ([]RawPost, error) {
	var all []RawPost
	for _, account := range f.accounts {
		posts, err := f.fetchAccount(ctx, account)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  feed %s error: %v\n", account, err)
			continue
		}
		all = append(all, posts...)
	}
	return all, nil
}

func (f *Feed) fetchAccount(ctx context.Context, account string) ([]RawPost, error) {
	feedURL := fmt.Sprintf("%s/%s/rss", f.bridgeURL, account)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request %s: %w", account, err)
	}
	req.Header.Set("User-Agent", "viralscope/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", account, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s status %d", account, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", account, err)
	}

	var posts []RawPost
	for _, entry := range parsed.Items {
		raw := RawPost{
			"account_id": account,
			"post_id":    entry.GUID,
			"url":        entry.Link,
			"caption":    entry.Title,
		}
		if entry.PublishedParsed != nil {
			raw["posted_at"] = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			raw["posted_at"] = entry.UpdatedParsed.UTC()
		}
		posts = append(posts, raw)
	}
	return posts, nil
}
