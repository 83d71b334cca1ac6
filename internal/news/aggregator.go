// Package news aggregates water headlines from the configured RSS and Atom feeds.
package news

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bbernstein/waterlab/backend-go/internal/cache"
	"github.com/bbernstein/waterlab/backend-go/internal/config"
	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	"github.com/bbernstein/waterlab/backend-go/internal/models"
	"github.com/bbernstein/waterlab/backend-go/internal/normalize"
	"github.com/bbernstein/waterlab/backend-go/pkg/http/client"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	UserAgent = "WaterLab Demo RSS/1.0 (+https://localhost)"

	MaxArticles     = 8
	untitledArticle = "Untitled article"
	cacheKey        = "latest"
	maxParallel     = 4
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

type Aggregator struct {
	httpClient client.Interface
	feeds      []config.NewsFeed
	cache      *cache.TTLCache[[]models.WaterNewsArticle]
	metrics    *metrics.Metrics
}

var _ models.NewsProvider = (*Aggregator)(nil)

func NewHTTPClient(timeout time.Duration) *client.Client {
	return client.New(client.Options{
		Timeout:   timeout,
		UserAgent: UserAgent,
		Accept:    "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8",
	})
}

// NewAggregator creates an aggregator whose article list is cached for the news TTL.
// An empty list is never served from cache.
func NewAggregator(httpClient client.Interface, feeds []config.NewsFeed, cfg *config.CacheConfig, m *metrics.Metrics, opts ...cache.Option[[]models.WaterNewsArticle]) (*Aggregator, error) {
	opts = append(opts,
		cache.WithMetrics[[]models.WaterNewsArticle](m),
		cache.WithColdCheck(func(articles []models.WaterNewsArticle) bool {
			return len(articles) == 0
		}),
	)
	c, err := cache.NewTTLCache[[]models.WaterNewsArticle]("news", 1, cfg.GetNewsTTL(), opts...)
	if err != nil {
		return nil, err
	}
	return &Aggregator{
		httpClient: httpClient,
		feeds:      feeds,
		cache:      c,
		metrics:    m,
	}, nil
}

// Latest returns up to MaxArticles of the newest articles across all feeds. A failing feed
// is skipped; only a cancelled context is reported as an error.
func (a *Aggregator) Latest(ctx context.Context) ([]models.WaterNewsArticle, error) {
	return a.cache.GetOrLoad(ctx, cacheKey, a.aggregate)
}

func (a *Aggregator) aggregate(ctx context.Context) ([]models.WaterNewsArticle, error) {
	perFeed := make([][]models.WaterNewsArticle, len(a.feeds))

	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, feed := range a.feeds {
		i, feed := i, feed
		g.Go(func() error {
			articles, err := a.fetchFeed(ctx, feed)
			if err != nil {
				log.Warn().Err(err).Str("source", feed.Source).Str("url", feed.URL).Msg("News source failed")
				return nil
			}
			log.Info().Int("items", len(articles)).Str("source", feed.Source).Msg("Fetched news feed")
			perFeed[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	var all []models.WaterNewsArticle
	for _, articles := range perFeed {
		all = append(all, articles...)
	}
	articles := Rank(all)

	if len(articles) == 0 {
		log.Warn().Msg("No news articles available from configured sources")
	}
	a.metrics.SetNewsArticles(len(articles))
	return articles, nil
}

func (a *Aggregator) fetchFeed(ctx context.Context, source config.NewsFeed) ([]models.WaterNewsArticle, error) {
	start := time.Now()
	resp, err := a.httpClient.Get(ctx, source.URL)
	a.metrics.ObserveUpstream("news", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("feed responded with %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	articles := make([]models.WaterNewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		articles = append(articles, toArticle(item, source))
	}
	return articles, nil
}

func toArticle(item *gofeed.Item, source config.NewsFeed) models.WaterNewsArticle {
	article := models.WaterNewsArticle{
		Title:   strings.TrimSpace(item.Title),
		Link:    strings.TrimSpace(item.Link),
		Summary: snippet(item.Description),
		Source:  source.Source,
		Image:   extractImage(item),
	}
	if article.Title == "" {
		article.Title = untitledArticle
	}
	if article.Link == "" {
		article.Link = source.URL
	}
	if article.Summary == "" {
		article.Summary = snippet(item.Content)
	}

	switch {
	case item.PublishedParsed != nil:
		date := normalize.FormatTimestamp(*item.PublishedParsed)
		article.Date = &date
	case item.Published != "":
		date := item.Published
		article.Date = &date
	case item.UpdatedParsed != nil:
		date := normalize.FormatTimestamp(*item.UpdatedParsed)
		article.Date = &date
	}
	return article
}

// snippet reduces HTML to its collapsed text content.
func snippet(s string) string {
	text := html.UnescapeString(tagPattern.ReplaceAllString(s, " "))
	return strings.Join(strings.Fields(text), " ")
}

// Rank orders articles newest first, drops repeated links and keeps the first MaxArticles.
// Articles without a parsable date sort as the Unix epoch.
func Rank(articles []models.WaterNewsArticle) []models.WaterNewsArticle {
	sorted := make([]models.WaterNewsArticle, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sortKey(sorted[i]) > sortKey(sorted[j])
	})

	seen := make(map[string]bool, len(sorted))
	ranked := make([]models.WaterNewsArticle, 0, MaxArticles)
	for _, article := range sorted {
		if seen[article.Link] {
			continue
		}
		seen[article.Link] = true
		ranked = append(ranked, article)
		if len(ranked) == MaxArticles {
			break
		}
	}
	return ranked
}

func sortKey(article models.WaterNewsArticle) int64 {
	if article.Date == nil {
		return 0
	}
	if ts, ok := normalize.ParseTimestamp(*article.Date); ok {
		return ts.UnixMilli()
	}
	// raw pubDate strings that gofeed could not parse
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if ts, err := time.Parse(layout, *article.Date); err == nil {
			return ts.UnixMilli()
		}
	}
	return 0
}
