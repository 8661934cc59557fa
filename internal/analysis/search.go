package analysis

import (
	"context"
	"strings"

	"earnings-tracker/internal/apiclient"
)

// ReportFinder locates the press release for a symbol's quarter. An empty
// URL with a nil error means nothing suitable was found.
type ReportFinder interface {
	Find(ctx context.Context, symbol, quarter string) (string, error)
}

// SearchResult is one organic web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SerperFinder searches the web through the Serper API.
type SerperFinder struct {
	client *apiclient.Client
	apiKey string
}

// NewSerperFinder creates a finder posting to searchURL. Without an API key
// Find always reports no URL.
func NewSerperFinder(searchURL, apiKey string, opts ...apiclient.Option) *SerperFinder {
	opts = append(opts, apiclient.WithAPIKey(apiKey))
	return &SerperFinder{
		client: apiclient.New(searchURL, opts...),
		apiKey: apiKey,
	}
}

// Find implements ReportFinder.
func (f *SerperFinder) Find(ctx context.Context, symbol, quarter string) (string, error) {
	if f.apiKey == "" {
		return "", nil
	}

	var resp struct {
		Organic []SearchResult `json:"organic"`
	}
	query := map[string]string{
		"q": symbol + " " + quarter + " earnings press release investor relations",
	}
	if err := f.client.Post(ctx, "", query, &resp); err != nil {
		return "", err
	}
	return PickReportURL(resp.Organic), nil
}

var (
	preferredLinkParts = []string{"investor", "news", "press"}
	avoidedLinkParts   = []string{"seekingalpha", "motleyfool"}
)

// PickReportURL prefers investor-relations and press pages, skipping paywalled
// aggregators, and otherwise falls back to the top result.
func PickReportURL(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	for _, r := range results {
		link := strings.ToLower(r.Link)
		if containsAny(link, preferredLinkParts) && !containsAny(link, avoidedLinkParts) {
			return r.Link
		}
	}
	return results[0].Link
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
