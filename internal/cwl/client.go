// Package cwl fetches historical draws from the lottery centre's draw notice API.
//
// Requests are paced by a token-bucket limiter, retried with linear backoff
// and guarded by a circuit breaker. Records that fail to parse or validate are
// skipped and counted; they never fail a page.
package cwl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/ssq-planner/internal/logger"
	"github.com/rewired-gh/ssq-planner/internal/metrics"
	"github.com/rewired-gh/ssq-planner/internal/models"
)

// DefaultAPIURL is the public draw notice endpoint.
const DefaultAPIURL = "https://www.cwl.gov.cn/cwl_admin/front/cwlkj/search/kjxx/findDrawNotice"

const (
	gameName = "ssq"
	// maxProbePages bounds page discovery when the API omits the total.
	maxProbePages = 200
	probeStep     = 10
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

var dateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// ClientConfig tunes request pacing and failure handling.
type ClientConfig struct {
	PageSize          int
	MaxRetries        int
	RetryDelayBase    time.Duration
	RequestsPerSecond float64 // <= 0 disables pacing
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
}

// DefaultClientConfig returns the standard client settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PageSize:          30,
		MaxRetries:        5,
		RetryDelayBase:    time.Second,
		RequestsPerSecond: 2,
		BreakerFailures:   5,
		BreakerTimeout:    time.Minute,
	}
}

// Client provides access to the draw notice API.
type Client struct {
	apiURL     string
	httpClient *http.Client
	cfg        ClientConfig
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*Page]
	requests   atomic.Uint64
}

// Query selects one page, optionally restricted to a date range (inclusive).
type Query struct {
	PageNo   int
	DayStart string // YYYY-MM-DD, empty for no bound
	DayEnd   string
}

// Page is one parsed API page.
type Page struct {
	Total    int                 // total matching records reported by the API
	Received int                 // records in the raw page
	Skipped  int                 // malformed records dropped
	Draws    []models.DrawRecord // valid records, in API order (newest first)
}

// apiResponse is the API envelope.
type apiResponse struct {
	State   int         `json:"state"`
	Message string      `json:"message"`
	Total   int         `json:"total"`
	Result  []apiRecord `json:"result"`
}

type apiRecord struct {
	Code        string          `json:"code"`
	Date        string          `json:"date"`
	Red         string          `json:"red"`
	Blue        string          `json:"blue"`
	Sales       json.RawMessage `json:"sales"`
	PoolMoney   json.RawMessage `json:"poolmoney"`
	PrizeGrades []apiPrizeGrade `json:"prizegrades"`
}

type apiPrizeGrade struct {
	Type      int             `json:"type"`
	TypeNum   json.RawMessage `json:"typenum"`
	TypeMoney json.RawMessage `json:"typemoney"`
}

// NewClient creates a client for apiURL.
func NewClient(apiURL string, timeout time.Duration, cfg ClientConfig) *Client {
	def := DefaultClientConfig()
	if cfg.PageSize < 1 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.BreakerFailures < 1 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, 1),
	}
	c.breaker = gobreaker.NewCircuitBreaker[*Page](gobreaker.Settings{
		Name:        "cwl-draws",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s: %s -> %s", name, from, to)
			if to == gobreaker.StateOpen {
				metrics.BreakerOpen.Set(1)
			} else {
				metrics.BreakerOpen.Set(0)
			}
		},
	})
	return c
}

// FetchPage retrieves and parses one page. Each failed page (after retries)
// counts towards the circuit breaker; while it is open FetchPage fails fast
// with gobreaker.ErrOpenState.
func (c *Client) FetchPage(ctx context.Context, q Query) (*Page, error) {
	page, err := c.breaker.Execute(func() (*Page, error) {
		return c.fetchPage(ctx, q)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.FetchRequests.WithLabelValues("rejected").Inc()
	}
	return page, err
}

func (c *Client) fetchPage(ctx context.Context, q Query) (*Page, error) {
	params := url.Values{}
	params.Set("name", gameName)
	params.Set("pageNo", strconv.Itoa(max(q.PageNo, 1)))
	params.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
	params.Set("systemType", "PC")
	if q.DayStart != "" {
		params.Set("dayStart", q.DayStart)
	}
	if q.DayEnd != "" {
		params.Set("dayEnd", q.DayEnd)
	}

	resp, err := c.doRequest(ctx, c.apiURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", q.PageNo, err)
	}

	page := &Page{Total: resp.Total, Received: len(resp.Result)}
	for _, rec := range resp.Result {
		d, err := parseRecord(rec)
		if err != nil {
			page.Skipped++
			metrics.FetchSkippedRecords.Inc()
			logger.Debug("Skipping malformed record %q: %v", rec.Code, err)
			continue
		}
		if q.DayStart != "" && d.Date < q.DayStart {
			continue
		}
		page.Draws = append(page.Draws, d)
	}
	return page, nil
}

// doRequest performs the GET with pacing and retries. A non-zero API state
// is treated like a server error.
func (c *Client) doRequest(ctx context.Context, target string) (*apiResponse, error) {
	var lastErr error

	for i := 0; i < c.cfg.MaxRetries; i++ {
		if i > 0 {
			metrics.FetchRequests.WithLabelValues("retry").Inc()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * c.cfg.RetryDelayBase):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.attempt(ctx, target)
		if err == nil {
			metrics.FetchRequests.WithLabelValues("ok").Inc()
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		logger.Debug("Draw API attempt %d/%d failed: %v", i+1, c.cfg.MaxRetries, err)
	}

	metrics.FetchRequests.WithLabelValues("error").Inc()
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) attempt(ctx context.Context, target string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	n := c.requests.Add(1)
	req.Header.Set("User-Agent", userAgents[int(n%uint64(len(userAgents)))])
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.State != 0 {
		return nil, fmt.Errorf("api error (state %d): %s", out.State, out.Message)
	}
	return &out, nil
}

// MaxPages returns how many pages the full history spans. When the API does
// not report a total, pages are probed in steps of ten and then one by one.
func (c *Client) MaxPages(ctx context.Context) (int, error) {
	first, err := c.FetchPage(ctx, Query{PageNo: 1})
	if err != nil {
		return 0, err
	}
	if first.Total > 0 {
		return (first.Total + c.cfg.PageSize - 1) / c.cfg.PageSize, nil
	}
	if first.Received == 0 {
		return 0, nil
	}

	page := 1
	for page+probeStep <= maxProbePages {
		ok, err := c.hasRecords(ctx, page+probeStep)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		page += probeStep
	}
	for page < maxProbePages {
		ok, err := c.hasRecords(ctx, page+1)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		page++
	}
	return page, nil
}

func (c *Client) hasRecords(ctx context.Context, pageNo int) (bool, error) {
	p, err := c.FetchPage(ctx, Query{PageNo: pageNo})
	if err != nil {
		return false, err
	}
	return p.Received > 0, nil
}

// FetchAll walks pages 1..maxPages and returns every valid draw, newest first.
// A page that fails after retries is skipped. The walk stops at the first
// empty page, or when the circuit breaker opens; in that case the draws
// collected so far are returned with the error.
func (c *Client) FetchAll(ctx context.Context, maxPages int) ([]models.DrawRecord, error) {
	var draws []models.DrawRecord
	for pageNo := 1; pageNo <= maxPages; pageNo++ {
		page, err := c.FetchPage(ctx, Query{PageNo: pageNo})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || ctx.Err() != nil {
				return draws, fmt.Errorf("stopped at page %d: %w", pageNo, err)
			}
			logger.Warn("Skipping page %d: %v", pageNo, err)
			continue
		}
		if page.Received == 0 {
			break
		}
		draws = append(draws, page.Draws...)
		logger.Debug("Fetched page %d/%d: %d draws (%d skipped)", pageNo, maxPages, len(page.Draws), page.Skipped)
	}
	return draws, nil
}

// FetchRange returns the draws dated from start to end inclusive, newest first.
func (c *Client) FetchRange(ctx context.Context, start, end time.Time) ([]models.DrawRecord, error) {
	q := Query{
		PageNo:   1,
		DayStart: start.Format(models.DateLayout),
		DayEnd:   end.Format(models.DateLayout),
	}

	var draws []models.DrawRecord
	for q.PageNo <= maxProbePages {
		page, err := c.FetchPage(ctx, q)
		if err != nil {
			return draws, fmt.Errorf("failed to fetch range %s..%s: %w", q.DayStart, q.DayEnd, err)
		}
		draws = append(draws, page.Draws...)
		if page.Received < c.cfg.PageSize {
			break
		}
		q.PageNo++
	}
	return draws, nil
}

// parseRecord converts one API record into a validated DrawRecord.
func parseRecord(rec apiRecord) (models.DrawRecord, error) {
	date := dateRe.FindString(rec.Date)
	if date == "" {
		return models.DrawRecord{}, fmt.Errorf("unparsable date %q", rec.Date)
	}
	if rec.Red == "" || rec.Blue == "" {
		return models.DrawRecord{}, errors.New("missing numbers")
	}

	var mains []int
	for _, part := range strings.Split(rec.Red, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return models.DrawRecord{}, fmt.Errorf("bad main number %q", part)
		}
		mains = append(mains, n)
	}
	special, err := strconv.Atoi(strings.TrimSpace(rec.Blue))
	if err != nil {
		return models.DrawRecord{}, fmt.Errorf("bad special number %q", rec.Blue)
	}

	d := models.DrawRecord{
		Period:      strings.TrimSpace(rec.Code),
		Date:        date,
		Mains:       mains,
		Special:     special,
		SalesAmount: parseAmount(rec.Sales),
		PoolAmount:  parseAmount(rec.PoolMoney),
	}
	for _, g := range rec.PrizeGrades {
		switch g.Type {
		case 1:
			d.FirstPrizeCount = parseAmount(g.TypeNum)
			d.FirstPrizeAmount = parseAmount(g.TypeMoney)
		case 2:
			d.SecondPrizeCount = parseAmount(g.TypeNum)
			d.SecondPrizeAmount = parseAmount(g.TypeMoney)
		}
	}
	if err := d.Validate(); err != nil {
		return models.DrawRecord{}, err
	}
	return d, nil
}

var amountReplacer = strings.NewReplacer(",", "", "￥", "", "¥", "", "元", "", `"`, "")

// parseAmount reads a number that may be a JSON string or number and may carry
// thousands separators or currency marks. Anything unparsable is 0.
func parseAmount(raw json.RawMessage) int64 {
	s := strings.TrimSpace(amountReplacer.Replace(string(raw)))
	if s == "" || s == "-" || s == "null" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}
