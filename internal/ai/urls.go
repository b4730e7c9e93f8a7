package ai

import (
	"fmt"
	"net/url"
	"strings"
)

// dedupeURLs cleans each URL and drops exact duplicates, keeping first
// occurrence order. Blank entries are skipped.
func dedupeURLs(urls []string, clean func(string) string) []string {
	seen := make(map[string]bool, len(urls))
	out := []string{}
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if clean != nil {
			u = clean(u)
		}
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// stripChatGPTSource removes the utm_source=chatgpt.com parameter OpenAI
// appends to citation links. Other parameters keep their order.
func stripChatGPTSource(rawURL string) string {
	base, query, found := strings.Cut(rawURL, "?")
	if !found {
		return rawURL
	}
	query, fragment, hasFragment := strings.Cut(query, "#")

	var kept []string
	for _, pair := range strings.Split(query, "&") {
		if pair == "utm_source=chatgpt.com" || pair == "" {
			continue
		}
		kept = append(kept, pair)
	}

	out := base
	if len(kept) > 0 {
		out += "?" + strings.Join(kept, "&")
	}
	if hasFragment {
		out += "#" + fragment
	}
	return out
}

// Hostname returns the host of rawURL without port or leading "www." labels.
func Hostname(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		// Already a bare hostname.
		host = rawURL
		if u.Scheme != "" || strings.ContainsAny(host, "/?#") {
			return "", fmt.Errorf("url %q has no host", rawURL)
		}
	}
	host = strings.ToLower(host)
	for strings.HasPrefix(host, "www.") {
		host = strings.TrimPrefix(host, "www.")
	}
	return host, nil
}
