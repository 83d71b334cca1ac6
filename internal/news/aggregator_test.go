package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bbernstein/waterlab/backend-go/internal/cache"
	"github.com/bbernstein/waterlab/backend-go/internal/config"
	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	"github.com/bbernstein/waterlab/backend-go/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedA = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>UN Water</title>
    <link>https://news.example</link>
    <description>Water news</description>
    <item>
      <title>Aquifers</title>
      <link>https://news.example/a1</link>
      <pubDate>Fri, 05 Jan 2024 10:00:00 +0000</pubDate>
      <description>Groundwater &amp; more</description>
      <enclosure url="/img/a1.jpg" type="image/jpeg" length="1024"/>
    </item>
    <item>
      <title>Rivers</title>
      <link>https://news.example/a2</link>
      <pubDate>Thu, 04 Jan 2024 10:00:00 +0000</pubDate>
      <description>Old copy</description>
      <media:content url="https://cdn.example/a2.png" medium="image"/>
    </item>
  </channel>
</rss>`

const feedB = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Swiss Water</title>
    <link>https://other.example</link>
    <description>More water news</description>
    <item>
      <title>Rivers again</title>
      <link>https://news.example/a2</link>
      <pubDate>Sat, 06 Jan 2024 10:00:00 +0000</pubDate>
      <description>Fresh copy</description>
    </item>
    <item>
      <link>https://other.example/b2</link>
      <description><![CDATA[<p>Hello <img src="pics/b2.jpg"> world</p>]]></description>
    </item>
    <item>
      <title>No link</title>
      <pubDate>Wed, 03 Jan 2024 10:00:00 +0000</pubDate>
      <description>Linkless</description>
    </item>
  </channel>
</rss>`

type feedServer struct {
	*httptest.Server
	requests int32
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fs.requests, 1)
		switch r.URL.Path {
		case "/a.xml":
			_, _ = fmt.Fprint(w, feedA)
		case "/b.xml":
			_, _ = fmt.Fprint(w, feedB)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newTestAggregator(t *testing.T, feeds []config.NewsFeed, m *metrics.Metrics, opts ...cache.Option[[]models.WaterNewsArticle]) *Aggregator {
	t.Helper()
	a, err := NewAggregator(NewHTTPClient(5*time.Second), feeds, &config.CacheConfig{NewsTTLMinutes: 10}, m, opts...)
	require.NoError(t, err)
	return a
}

func TestLatest(t *testing.T) {
	server := newFeedServer(t)
	m := metrics.NewMetricsForTesting()

	a := newTestAggregator(t, []config.NewsFeed{
		{URL: server.URL + "/a.xml", Source: "UN Water"},
		{URL: server.URL + "/b.xml", Source: "Swiss Water"},
		{URL: server.URL + "/broken", Source: "Broken"},
	}, m)

	articles, err := a.Latest(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 4)

	links := make([]string, 0, len(articles))
	titles := make([]string, 0, len(articles))
	for _, article := range articles {
		links = append(links, article.Link)
		titles = append(titles, article.Title)
	}
	assert.Equal(t, []string{
		"https://news.example/a2",
		"https://news.example/a1",
		server.URL + "/b.xml",
		"https://other.example/b2",
	}, links)
	assert.Equal(t, []string{"Rivers again", "Aquifers", "No link", "Untitled article"}, titles)

	newest := articles[0]
	assert.Equal(t, "Swiss Water", newest.Source)
	assert.Equal(t, "Fresh copy", newest.Summary)
	require.NotNil(t, newest.Date)
	assert.Equal(t, "2024-01-06T10:00:00.000Z", *newest.Date)
	assert.Nil(t, newest.Image)

	aquifers := articles[1]
	assert.Equal(t, "Groundwater & more", aquifers.Summary)
	require.NotNil(t, aquifers.Image)
	assert.Equal(t, "https://news.example/img/a1.jpg", *aquifers.Image)

	untitled := articles[3]
	assert.Nil(t, untitled.Date)
	assert.Equal(t, "Hello world", untitled.Summary)
	require.NotNil(t, untitled.Image)
	assert.Equal(t, "https://other.example/pics/b2.jpg", *untitled.Image)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.NewsArticles))

	requests := atomic.LoadInt32(&server.requests)
	assert.Equal(t, int32(3), requests)

	_, err = a.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, requests, atomic.LoadInt32(&server.requests), "second call is served from cache")
}

func TestLatestRefetchesAfterTTL(t *testing.T) {
	server := newFeedServer(t)
	clock := clockwork.NewFakeClock()

	a := newTestAggregator(t, []config.NewsFeed{{URL: server.URL + "/a.xml", Source: "UN Water"}}, nil,
		cache.WithClock[[]models.WaterNewsArticle](clock))

	_, err := a.Latest(context.Background())
	require.NoError(t, err)
	clock.Advance(9 * time.Minute)
	_, err = a.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&server.requests))

	clock.Advance(2 * time.Minute)
	_, err = a.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&server.requests))
}

func TestLatestEmptyIsNotCached(t *testing.T) {
	server := newFeedServer(t)

	a := newTestAggregator(t, []config.NewsFeed{{URL: server.URL + "/broken", Source: "Broken"}}, nil)

	articles, err := a.Latest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, articles)

	_, err = a.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&server.requests))
}

func TestLatestCancelledContext(t *testing.T) {
	server := newFeedServer(t)
	a := newTestAggregator(t, []config.NewsFeed{{URL: server.URL + "/a.xml", Source: "UN Water"}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Latest(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func article(link, date string) models.WaterNewsArticle {
	a := models.WaterNewsArticle{Title: link, Link: link}
	if date != "" {
		a.Date = &date
	}
	return a
}

func TestRank(t *testing.T) {
	t.Run("sorts newest first with undated last", func(t *testing.T) {
		ranked := Rank([]models.WaterNewsArticle{
			article("undated", ""),
			article("garbage", "someday"),
			article("old", "2023-12-01T00:00:00.000Z"),
			article("new", "2024-01-05T10:00:00.000Z"),
			article("rfc", "Thu, 04 Jan 2024 10:00:00 +0000"),
		})

		links := make([]string, 0, len(ranked))
		for _, a := range ranked {
			links = append(links, a.Link)
		}
		assert.Equal(t, []string{"new", "rfc", "old", "undated", "garbage"}, links)
	})

	t.Run("keeps the newest copy of a link", func(t *testing.T) {
		ranked := Rank([]models.WaterNewsArticle{
			article("same", "2024-01-01T00:00:00.000Z"),
			article("same", "2024-01-02T00:00:00.000Z"),
		})
		require.Len(t, ranked, 1)
		assert.Equal(t, "2024-01-02T00:00:00.000Z", *ranked[0].Date)
	})

	t.Run("truncates", func(t *testing.T) {
		input := make([]models.WaterNewsArticle, 0, 12)
		for i := 0; i < 12; i++ {
			input = append(input, article(fmt.Sprintf("link-%d", i), fmt.Sprintf("2024-01-%02dT00:00:00.000Z", i+1)))
		}
		ranked := Rank(input)
		require.Len(t, ranked, MaxArticles)
		assert.Equal(t, "link-11", ranked[0].Link)
		assert.Equal(t, "link-4", ranked[MaxArticles-1].Link)
	})
}

func TestExtractImage(t *testing.T) {
	tests := []struct {
		name string
		item *gofeed.Item
		want string
	}{
		{
			name: "enclosure wins",
			item: &gofeed.Item{
				Link:       "https://news.example/story",
				Enclosures: []*gofeed.Enclosure{{URL: "https://cdn.example/e.jpg"}},
				Image:      &gofeed.Image{URL: "https://cdn.example/i.jpg"},
			},
			want: "https://cdn.example/e.jpg",
		},
		{
			name: "media thumbnail",
			item: &gofeed.Item{
				Link: "https://news.example/story",
				Extensions: ext.Extensions{"media": {
					"thumbnail": {{Name: "thumbnail", Attrs: map[string]string{"url": "/thumbs/t.jpg"}}},
				}},
			},
			want: "https://news.example/thumbs/t.jpg",
		},
		{
			name: "media group content",
			item: &gofeed.Item{
				Extensions: ext.Extensions{"media": {
					"group": {{Name: "group", Children: map[string][]ext.Extension{
						"content": {{Name: "content", Attrs: map[string]string{"url": "https://cdn.example/g.jpg"}}},
					}}},
				}},
			},
			want: "https://cdn.example/g.jpg",
		},
		{
			name: "item image",
			item: &gofeed.Item{Image: &gofeed.Image{URL: " https://cdn.example/i.jpg "}},
			want: "https://cdn.example/i.jpg",
		},
		{
			name: "img tag in content",
			item: &gofeed.Item{
				Link:    "https://news.example/deep/story",
				Content: `<figure><IMG class="hero" SRC='/hero.png'></figure>`,
			},
			want: "https://news.example/hero.png",
		},
		{
			name: "relative url without origin",
			item: &gofeed.Item{Description: `<img src="hero.png">`},
		},
		{
			name: "nothing",
			item: &gofeed.Item{Link: "https://news.example/story"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := extractImage(tt.item)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNewHTTPClientSendsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	_, err := NewHTTPClient(time.Second).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, UserAgent, gotUA)
}

func TestLatestSharedLoadSurvivesCancelledCaller(t *testing.T) {
	requested := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case requested <- struct{}{}:
		default:
		}
		<-release
		_, _ = fmt.Fprint(w, feedA)
	}))
	t.Cleanup(server.Close)

	a := newTestAggregator(t, []config.NewsFeed{{URL: server.URL + "/a.xml", Source: "UN Water"}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := a.Latest(ctx)
		firstErr <- err
	}()
	<-requested

	type result struct {
		articles []models.WaterNewsArticle
		err      error
	}
	second := make(chan result, 1)
	go func() {
		articles, err := a.Latest(context.Background())
		second <- result{articles: articles, err: err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Len(t, got.articles, 2)
}
