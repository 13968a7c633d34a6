package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fundval/fundval-backend/internal/model"
)

var sinaQuotePattern = regexp.MustCompile(`="(.*)"`)

// SinaClient fetches live fund quotes from the Sina quote endpoint. It is
// the secondary provider: its fields are overlaid onto an Eastmoney
// valuation only where the primary left gaps.
type SinaClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	quoteURL   string
}

// SinaOption configures the client.
type SinaOption func(*SinaClient)

// WithSinaBaseURL overrides the quote URL template; used in tests. The
// template must contain one %s verb for the fund code.
func WithSinaBaseURL(quoteURL string) SinaOption {
	return func(c *SinaClient) {
		c.quoteURL = quoteURL
	}
}

// NewSinaClient creates a Sina client with the given request timeout and
// rate limit (requests per second).
func NewSinaClient(timeout time.Duration, rps float64, opts ...SinaOption) *SinaClient {
	c := &SinaClient{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		quoteURL:   "http://hq.sinajs.cn/list=fu_%s",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider in valuation records.
func (c *SinaClient) Name() string { return "sina" }

// FetchLive fetches the live quote line for one fund. The payload is a
// JS assignment whose value is a comma-separated record; the fields used
// here are estimate (2), NAV (3), estimate change percent (6) and the
// quote date (7) paired with the intraday time (1).
func (c *SinaClient) FetchLive(ctx context.Context, code string) (model.Valuation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Valuation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(c.quoteURL, code), nil)
	if err != nil {
		return model.Valuation{}, err
	}
	req.Header.Set("Referer", "http://finance.sina.com.cn")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Valuation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Valuation{}, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Valuation{}, err
	}

	match := sinaQuotePattern.FindSubmatch(body)
	if match == nil || len(match[1]) == 0 {
		return model.Valuation{}, fmt.Errorf("unexpected quote payload for %s", code)
	}

	parts := strings.Split(string(match[1]), ",")
	if len(parts) < 8 {
		return model.Valuation{}, fmt.Errorf("short quote payload for %s", code)
	}

	return model.Valuation{
		Code:         code,
		Estimate:     parseFloat(parts[2]),
		Nav:          parseFloat(parts[3]),
		EstimateRate: parseFloat(parts[6]),
		Time:         parts[7] + " " + parts[1],
		Source:       c.Name(),
	}, nil
}
