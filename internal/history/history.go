// Package history carries the handoff payload shape from the browsing
// history collector and the local rule-based URL filter applied before
// generation.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Payload is the fixed shape the collection agent hands to the
// pipeline. The generator only ever consumes the URL list.
type Payload struct {
	URLs      []string `json:"urls"`
	Timestamp int64    `json:"timestamp"`
	Source    string   `json:"source"`
	Stats     Stats    `json:"stats"`
}

// Stats summarizes what filtering did to a raw URL list.
type Stats struct {
	Total    int `json:"total"`    // URLs seen before filtering
	Filtered int `json:"filtered"` // URLs kept
	Removed  int `json:"removed"`  // URLs dropped
}

// ParsePayload decodes a collector payload.
func ParsePayload(data []byte) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode history payload: %w", err)
	}
	if payload.URLs == nil {
		return nil, fmt.Errorf("history payload has no urls field")
	}
	return &payload, nil
}

// URL regex patterns
var (
	// Matches markdown links: [text](url)
	markdownLinkRegex = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)

	// Matches raw URLs in text
	rawURLRegex = regexp.MustCompile(`https?://[^\s)]+`)
)

// noisePatterns classify URLs that carry no learnable content: auth
// flows, search result pages, local development hosts, raw file
// downloads and ad/tracker redirects.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`://(localhost|127\.0\.0\.1|0\.0\.0\.0|\[::1\])([:/]|$)`),
	regexp.MustCompile(`/(login|signin|sign-in|signup|sign-up|logout|auth|oauth|sso|password|verify)([/?#]|$)`),
	regexp.MustCompile(`://(www\.)?(google|bing|duckduckgo|baidu)\.[a-z.]+/(search|html)?(\?|$)`),
	regexp.MustCompile(`\.(zip|tar\.gz|tgz|dmg|exe|msi|pkg|iso|deb|rpm)(\?|#|$)`),
	regexp.MustCompile(`://[^/]*\b(doubleclick|googleadservices|adservice|analytics)\.`),
}

// Filter is the static pattern classifier the collection agent applies
// locally before handing a URL list to the pipeline.
type Filter struct {
	patterns []*regexp.Regexp
}

// NewFilter creates a filter with the default noise rules.
func NewFilter() *Filter {
	return &Filter{patterns: noisePatterns}
}

// Apply validates, filters, normalizes and deduplicates a raw URL list,
// preserving input order, and reports the resulting stats.
func (f *Filter) Apply(urls []string) ([]string, Stats) {
	seen := make(map[string]bool)
	kept := make([]string, 0, len(urls))

	for _, raw := range urls {
		if validateURL(raw) != nil {
			continue
		}
		if f.isNoise(raw) {
			continue
		}
		normalized := NormalizeURL(raw)
		if !seen[normalized] {
			seen[normalized] = true
			kept = append(kept, normalized)
		}
	}

	return kept, Stats{
		Total:    len(urls),
		Filtered: len(kept),
		Removed:  len(urls) - len(kept),
	}
}

func (f *Filter) isNoise(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, pattern := range f.patterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// ExtractURLs extracts URLs from free text or markdown content,
// handling both markdown links [text](url) and raw URLs, deduplicated
// in document order.
func ExtractURLs(content string) []string {
	urlMap := make(map[string]bool)
	var urls []string

	add := func(u string) {
		if validateURL(u) != nil {
			return
		}
		normalized := NormalizeURL(u)
		if !urlMap[normalized] {
			urlMap[normalized] = true
			urls = append(urls, normalized)
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()

		markdownMatches := markdownLinkRegex.FindAllStringSubmatch(line, -1)
		if len(markdownMatches) > 0 {
			for _, match := range markdownMatches {
				if len(match) >= 3 {
					add(match[2])
				}
			}
			continue
		}

		for _, rawURL := range rawURLRegex.FindAllString(line, -1) {
			add(rawURL)
		}
	}

	return urls
}

// validateURL checks that a URL is an absolute http(s) URL with a host.
func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (must be http or https)", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL missing host")
	}

	return nil
}

// NormalizeURL removes tracking parameters and normalizes URL format.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL // Return original if parsing fails
	}

	query := parsed.Query()
	trackingParams := []string{
		"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
		"fbclid", "gclid", "msclkid",
		"ref", "source",
	}
	for _, param := range trackingParams {
		query.Del(param)
	}
	parsed.RawQuery = query.Encode()

	// Fragments don't affect content
	parsed.Fragment = ""

	if parsed.Path != "" && parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}
