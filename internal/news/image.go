package news

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

var imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]+src\s*=\s*["']([^"'>]+)["']`)

// extractImage picks the best thumbnail for an item. Relative URLs are resolved against
// the origin of the article link; they are dropped when the link has no usable origin.
func extractImage(item *gofeed.Item) *string {
	base := linkOrigin(item.Link)

	candidates := make([]string, 0, 8)
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && enclosure.URL != "" {
			candidates = append(candidates, enclosure.URL)
			break
		}
	}
	candidates = append(candidates, mediaURL(item, "content"), mediaURL(item, "thumbnail"))
	if item.Image != nil {
		candidates = append(candidates, item.Image.URL)
	}

	for _, candidate := range candidates {
		if resolved, ok := resolveImageURL(candidate, base); ok {
			return &resolved
		}
	}

	for _, html := range []string{item.Content, item.Description} {
		match := imgSrcPattern.FindStringSubmatch(html)
		if len(match) < 2 {
			continue
		}
		if resolved, ok := resolveImageURL(match[1], base); ok {
			return &resolved
		}
	}
	return nil
}

// mediaURL returns the first url attribute of a Media RSS element, e.g. <media:content url="...">.
func mediaURL(item *gofeed.Item, name string) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, ext := range media[name] {
		if u := ext.Attrs["url"]; u != "" {
			return u
		}
	}
	for _, group := range media["group"] {
		for _, ext := range group.Children[name] {
			if u := ext.Attrs["url"]; u != "" {
				return u
			}
		}
	}
	return ""
}

func linkOrigin(link string) *url.URL {
	if link == "" {
		return nil
	}
	u, err := url.Parse(link)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
}

func resolveImageURL(raw string, base *url.URL) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed, true
	}
	if base == nil {
		return "", false
	}
	ref, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}
