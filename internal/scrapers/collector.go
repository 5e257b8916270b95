package scrapers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds the request settings shared by every scraper.
type Config struct {
	UserAgent string
	Delay     time.Duration
	Timeout   time.Duration
}

func (c Config) userAgent() string {
	if c.UserAgent == "" {
		return defaultUserAgent
	}
	return c.UserAgent
}

// newCollector builds a fresh collector for a single fetch. Collectors
// remember visited URLs, so one is never reused across refreshes.
func newCollector(ctx context.Context, target string, cfg Config, accept string, logger logrus.FieldLogger) (*colly.Collector, error) {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid target url %q", target)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(u.Hostname()),
		colly.StdlibContext(ctx),
		colly.UserAgent(cfg.userAgent()),
	)

	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", accept)
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
		r.Headers.Set("Cache-Control", "no-cache")
	})

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("collector limit: %w", err)
	}

	c.OnError(func(r *colly.Response, err error) {
		logger.WithError(err).WithFields(logrus.Fields{
			"url":    r.Request.URL.String(),
			"status": r.StatusCode,
		}).Warn("scrape request failed")
	})

	return c, nil
}
