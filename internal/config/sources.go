package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// StationDefault is a station that is always listed, regardless of upstream availability.
type StationDefault struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// SocrataSource describes one live Socrata dataset serving a single station.
type SocrataSource struct {
	StationID string `yaml:"stationId"`
	Name      string `yaml:"name"`
	WaterBody string `yaml:"waterBody"`
	Canton    string `yaml:"canton"`
	URL       string `yaml:"url"`
}

type NewsFeed struct {
	URL    string `yaml:"url"`
	Source string `yaml:"source"`
}

// Sources groups every upstream the service knows about.
type Sources struct {
	DefaultStations []StationDefault `yaml:"defaultStations"`
	Socrata         []SocrataSource  `yaml:"socrata"`
	NewsFeeds       []NewsFeed       `yaml:"newsFeeds"`
}

// DefaultSources returns the built-in station and feed configuration.
func DefaultSources() *Sources {
	return &Sources{
		DefaultStations: []StationDefault{
			{ID: "2061", Name: "Zürich / Limmat"},
			{ID: "2141", Name: "Bern / Aare"},
			{ID: "2155", Name: "Thun / Aare"},
			{ID: "2325", Name: "Luzern / Reuss"},
			{ID: "2409", Name: "Basel / Rhein"},
		},
		Socrata: []SocrataSource{
			{
				StationID: "2106",
				Name:      "Birs / Hofmatt",
				WaterBody: "Birs",
				Canton:    "BS",
				URL:       "https://data.bs.ch/api/v2/catalog/datasets/100236/records?limit=100",
			},
		},
		NewsFeeds: []NewsFeed{
			{URL: "https://www.unwater.org/rss.xml", Source: "UN Water"},
		},
	}
}

// LoadSources reads a YAML sources file. Sections missing from the file keep their defaults;
// an empty path returns the defaults unchanged.
func LoadSources(path string) (*Sources, error) {
	sources := DefaultSources()
	if path == "" {
		return sources, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}

	var fromFile Sources
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("parsing sources file: %w", err)
	}

	if len(fromFile.DefaultStations) > 0 {
		sources.DefaultStations = fromFile.DefaultStations
	}
	if len(fromFile.Socrata) > 0 {
		sources.Socrata = fromFile.Socrata
	}
	if len(fromFile.NewsFeeds) > 0 {
		sources.NewsFeeds = fromFile.NewsFeeds
	}

	if err := sources.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", path).
		Int("default_stations", len(sources.DefaultStations)).
		Int("socrata_sources", len(sources.Socrata)).
		Int("news_feeds", len(sources.NewsFeeds)).
		Msg("Sources file loaded")

	return sources, nil
}

// Validate checks that every configured source can be used
func (s *Sources) Validate() error {
	for i, st := range s.DefaultStations {
		if st.ID == "" {
			return fmt.Errorf("default station at index %d: id is required", i)
		}
	}
	for i, src := range s.Socrata {
		if src.StationID == "" {
			return fmt.Errorf("socrata source at index %d: stationId is required", i)
		}
		if src.URL == "" {
			return fmt.Errorf("socrata source %s: url is required", src.StationID)
		}
	}
	for i, feed := range s.NewsFeeds {
		if feed.URL == "" {
			return fmt.Errorf("news feed at index %d: url is required", i)
		}
	}
	return nil
}
