// Package marketdata implements the valuation provider clients. Eastmoney
// is the primary source for live estimates, NAV history and the fund
// catalogue; Sina is the secondary live source used when Eastmoney yields
// no usable estimate.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/fundval/fundval-backend/internal/model"
)

const eastmoneyUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

var (
	jsonpgzPattern       = regexp.MustCompile(`jsonpgz\((.*)\)`)
	netWorthTrendPattern = regexp.MustCompile(`Data_netWorthTrend\s*=\s*(\[.+?\])\s*;`)
	fundListPattern      = regexp.MustCompile(`var\s+r\s*=\s*(\[.+\])`)
)

// EastmoneyClient fetches fund data from the Eastmoney endpoints.
// Requests share a rate limiter so batch callers cannot hammer the
// provider.
type EastmoneyClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	liveURL    string
	detailURL  string
	listURL    string
}

// EastmoneyOption configures the client.
type EastmoneyOption func(*EastmoneyClient)

// WithEastmoneyBaseURLs overrides the endpoint URL templates; used in tests.
// liveURL and detailURL must contain one %s verb for the fund code.
func WithEastmoneyBaseURLs(liveURL, detailURL, listURL string) EastmoneyOption {
	return func(c *EastmoneyClient) {
		c.liveURL = liveURL
		c.detailURL = detailURL
		c.listURL = listURL
	}
}

// NewEastmoneyClient creates an Eastmoney client with the given request
// timeout and rate limit (requests per second).
func NewEastmoneyClient(timeout time.Duration, rps float64, opts ...EastmoneyOption) *EastmoneyClient {
	c := &EastmoneyClient{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		liveURL:    "http://fundgz.1234567.com.cn/js/%s.js",
		detailURL:  "http://fund.eastmoney.com/pingzhongdata/%s.js",
		listURL:    "http://fund.eastmoney.com/js/fundcode_search.js",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider in valuation records.
func (c *EastmoneyClient) Name() string { return "eastmoney" }

// FetchLive fetches the live estimate payload for one fund. The endpoint
// returns a JSONP-wrapped object with string-encoded numbers.
func (c *EastmoneyClient) FetchLive(ctx context.Context, code string) (model.Valuation, error) {
	url := fmt.Sprintf(c.liveURL, code) + fmt.Sprintf("?rt=%d", time.Now().UnixMilli())
	body, err := c.get(ctx, url)
	if err != nil {
		return model.Valuation{}, err
	}

	match := jsonpgzPattern.FindSubmatch(body)
	if match == nil || len(match[1]) == 0 {
		return model.Valuation{}, fmt.Errorf("unexpected live payload for %s", code)
	}

	var raw struct {
		Name   string `json:"name"`
		Dwjz   string `json:"dwjz"`   // last published NAV
		Gsz    string `json:"gsz"`    // live estimate
		Gszzl  string `json:"gszzl"`  // estimate change percent
		Gztime string `json:"gztime"` // observation timestamp
	}
	if err := json.Unmarshal(match[1], &raw); err != nil {
		return model.Valuation{}, fmt.Errorf("failed to parse live payload for %s: %w", code, err)
	}

	return model.Valuation{
		Code:         code,
		Name:         raw.Name,
		Nav:          parseFloat(raw.Dwjz),
		Estimate:     parseFloat(raw.Gsz),
		EstimateRate: parseFloat(raw.Gszzl),
		Time:         raw.Gztime,
		Source:       c.Name(),
	}, nil
}

// FetchHistory fetches the full published NAV series for one fund from
// the pingzhongdata script, ordered by ascending date.
func (c *EastmoneyClient) FetchHistory(ctx context.Context, code string) ([]model.NavPoint, error) {
	body, err := c.get(ctx, fmt.Sprintf(c.detailURL, code))
	if err != nil {
		return nil, err
	}

	match := netWorthTrendPattern.FindSubmatch(body)
	if match == nil {
		return nil, fmt.Errorf("no nav history in payload for %s", code)
	}

	var raw []struct {
		X int64   `json:"x"` // unix milliseconds
		Y float64 `json:"y"` // unit NAV
	}
	if err := json.Unmarshal(match[1], &raw); err != nil {
		return nil, fmt.Errorf("failed to parse nav history for %s: %w", code, err)
	}

	points := make([]model.NavPoint, 0, len(raw))
	for _, item := range raw {
		points = append(points, model.NavPoint{
			Date: time.UnixMilli(item.X).UTC().Format("2006-01-02"),
			Nav:  item.Y,
		})
	}

	return points, nil
}

// FetchFundList fetches the full fund catalogue. Each entry in the
// payload is an array of strings: code, abbreviation, name, type, pinyin.
func (c *EastmoneyClient) FetchFundList(ctx context.Context) ([]model.Fund, error) {
	body, err := c.get(ctx, c.listURL)
	if err != nil {
		return nil, err
	}

	match := fundListPattern.FindSubmatch(body)
	if match == nil {
		return nil, fmt.Errorf("unexpected fund list payload")
	}

	var raw [][]string
	if err := json.Unmarshal(match[1], &raw); err != nil {
		return nil, fmt.Errorf("failed to parse fund list: %w", err)
	}

	funds := make([]model.Fund, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 4 || entry[0] == "" {
			continue
		}
		funds = append(funds, model.Fund{
			Code: entry[0],
			Name: entry[2],
			Type: entry[3],
		})
	}

	return funds, nil
}

func (c *EastmoneyClient) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", eastmoneyUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// parseFloat converts a provider string field to float64, treating empty
// or malformed values as zero. Providers encode all numbers as strings.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
