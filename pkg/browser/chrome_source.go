package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"catalog-aggregator-api/internal/models"
	"catalog-aggregator-api/internal/scrapers"
)

// Options configures the headless browser.
type Options struct {
	ExecPath  string
	UserAgent string
	// Settle is how long to wait after the page is visible for client side
	// rendering to finish.
	Settle  time.Duration
	Timeout time.Duration
}

// ChromeSource renders a listing page in headless Chrome and parses the
// resulting DOM. It is used for listings that only exist after scripts run.
type ChromeSource struct {
	name      string
	pageURL   string
	brand     string
	selectors scrapers.SelectorSet
	opts      Options
	logger    logrus.FieldLogger
}

func NewChromeSource(name, pageURL, brand string, selectors scrapers.SelectorSet, opts Options, logger logrus.FieldLogger) *ChromeSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	return &ChromeSource{
		name:      name,
		pageURL:   pageURL,
		brand:     brand,
		selectors: selectors,
		opts:      opts,
		logger:    logger.WithField("source", name),
	}
}

func (c *ChromeSource) Name() string {
	return c.name
}

func (c *ChromeSource) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	pageURL, err := url.Parse(c.pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", c.pageURL, err)
	}

	html, err := c.render(ctx)
	if err != nil {
		return nil, err
	}

	records, err := scrapers.ParseProductList(strings.NewReader(html), pageURL, c.brand, c.selectors)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("records", len(records)).Info("rendered listing parsed")
	return records, nil
}

func (c *ChromeSource) render(ctx context.Context) (string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	taskCtx, timeoutCancel := context.WithTimeout(taskCtx, c.opts.Timeout)
	defer timeoutCancel()

	c.logger.WithField("url", c.pageURL).Info("rendering listing page")

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(c.pageURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(c.opts.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", c.pageURL, err)
	}

	return html, nil
}

func (c *ChromeSource) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-sandbox", true),
	)
	if c.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ExecPath))
	}
	if c.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.opts.UserAgent))
	}
	return opts
}
