package cost

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"tasnim.dev/costlens/internal/aws/billing"
)

// BillingClient is the upstream billing query boundary the Aggregator
// consumes. The production implementation lives in internal/aws/billing.
type BillingClient interface {
	QueryCosts(ctx context.Context, q billing.Query) ([]billing.Row, error)
}

// AggregatorConfig carries the rate-limit and caching discipline around
// the billing client. The defaults are deliberately conservative: the
// upstream quota is shared account-wide and a burst here starves every
// other caller.
type AggregatorConfig struct {
	// CacheTTL is how long a memoized query result stays valid.
	CacheTTL time.Duration
	// InterCallDelay is the mandatory pause before every upstream
	// query, regardless of outcome.
	InterCallDelay time.Duration
	// RetryAttempts caps retries after a rate-limit rejection.
	RetryAttempts int
	// RetryBaseDelay is the first backoff step.
	RetryBaseDelay time.Duration
	// RetryMultiplier > 1 makes the backoff exponential; at 1 (or
	// below) the wait grows linearly as baseDelay * attempt.
	RetryMultiplier float64
	// EnableFallback substitutes a deterministic synthetic series when
	// the upstream is unreachable instead of failing the fetch.
	EnableFallback bool
}

// DefaultAggregatorConfig returns the conservative defaults.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		CacheTTL:        15 * time.Minute,
		InterCallDelay:  2 * time.Second,
		RetryAttempts:   5,
		RetryBaseDelay:  2 * time.Second,
		RetryMultiplier: 1, // linear
		EnableFallback:  false,
	}
}

// Aggregator normalizes raw billing rows into canonical daily series
// and per-dimension breakdowns. It owns the query cache and issues
// upstream calls sequentially through a shared limiter.
type Aggregator struct {
	client  BillingClient
	cfg     AggregatorConfig
	cache   *queryCache
	limiter *rate.Limiter
	log     *logrus.Logger

	// sleep is swapped out in tests so retries don't block.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAggregator creates an Aggregator around a billing client.
func NewAggregator(client BillingClient, cfg AggregatorConfig, log *logrus.Logger) *Aggregator {
	limit := rate.Inf
	if cfg.InterCallDelay > 0 {
		limit = rate.Every(cfg.InterCallDelay)
	}
	return &Aggregator{
		client:  client,
		cfg:     cfg,
		cache:   newQueryCache(cfg.CacheTTL),
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FetchSeries returns the normalized daily cost series for the window,
// plus per-key breakdowns when a grouping dimension was requested.
// Results are cached by (start, end, dimension); an unexpired cache hit
// issues no upstream call.
func (a *Aggregator) FetchSeries(ctx context.Context, start, end time.Time, dim Dimension) (*CostSeries, []DimensionBreakdown, error) {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return nil, nil, fmt.Errorf("invalid window: end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	key := cacheKey{start.Format("2006-01-02"), end.Format("2006-01-02"), "series-" + string(dim)}
	if entry, ok := a.cache.get(key); ok {
		a.log.WithField("key", key.queryType).Debug("billing query served from cache")
		return entry.series, entry.breakdowns, nil
	}

	rows, err := a.query(ctx, billing.Query{
		Start:   start,
		End:     end.AddDate(0, 0, 1), // upstream end is exclusive
		GroupBy: groupByFor(dim),
	})
	if err != nil {
		if a.cfg.EnableFallback {
			a.log.WithError(err).Warn("billing API unreachable, substituting synthetic series")
			return SyntheticSeries(start, end, ""), nil, nil
		}
		return nil, nil, &UpstreamQueryError{Op: "fetch-series", Err: err}
	}

	daily := make(map[time.Time]float64)
	groups := make(map[string]float64)
	currency := ""
	for _, row := range rows {
		d, err := NormalizeDate(row.Date)
		if err != nil {
			return nil, nil, &UpstreamQueryError{Op: "normalize-date", Err: err}
		}
		daily[d] += row.Cost
		if row.GroupKey != "" {
			groups[row.GroupKey] += row.Cost
		}
		if currency == "" && row.Currency != "" {
			currency = row.Currency
		}
	}
	if currency == "" {
		currency = "USD"
	}

	series := buildSeries(start, end, daily, currency)
	breakdowns := buildBreakdowns(groups, series.Total, dim)

	a.cache.put(key, cacheEntry{series: series, breakdowns: breakdowns})
	return series, breakdowns, nil
}

// FetchResourceSeries returns one normalized daily series per resource
// over the window. This is the per-resource feed the recommendation
// scorer runs on.
func (a *Aggregator) FetchResourceSeries(ctx context.Context, start, end time.Time) (map[string]*CostSeries, error) {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid window: end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	key := cacheKey{start.Format("2006-01-02"), end.Format("2006-01-02"), "resource-daily"}
	if entry, ok := a.cache.get(key); ok {
		a.log.Debug("resource series served from cache")
		return entry.resources, nil
	}

	rows, err := a.query(ctx, billing.Query{
		Start:   start,
		End:     end.AddDate(0, 0, 1),
		GroupBy: billing.GroupByResource,
	})
	if err != nil {
		return nil, &UpstreamQueryError{Op: "fetch-resource-series", Err: err}
	}

	perResource := make(map[string]map[time.Time]float64)
	currency := ""
	for _, row := range rows {
		if row.GroupKey == "" {
			continue
		}
		d, err := NormalizeDate(row.Date)
		if err != nil {
			return nil, &UpstreamQueryError{Op: "normalize-date", Err: err}
		}
		if perResource[row.GroupKey] == nil {
			perResource[row.GroupKey] = make(map[time.Time]float64)
		}
		perResource[row.GroupKey][d] += row.Cost
		if currency == "" && row.Currency != "" {
			currency = row.Currency
		}
	}
	if currency == "" {
		currency = "USD"
	}

	out := make(map[string]*CostSeries, len(perResource))
	for id, daily := range perResource {
		out[id] = buildSeries(start, end, daily, currency)
	}

	a.cache.put(key, cacheEntry{resources: out})
	return out, nil
}

// query issues one throttled upstream call, retrying only on rate-limit
// rejections. Any other failure propagates immediately.
func (a *Aggregator) query(ctx context.Context, q billing.Query) ([]billing.Row, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= a.cfg.RetryAttempts; attempt++ {
		rows, err := a.client.QueryCosts(ctx, q)
		if err == nil {
			return rows, nil
		}
		if !billing.IsRateLimit(err) {
			return nil, err
		}
		lastErr = err
		if attempt == a.cfg.RetryAttempts {
			break
		}
		wait := a.backoff(attempt)
		a.log.WithFields(logrus.Fields{"attempt": attempt, "wait": wait}).Debug("rate limited, backing off")
		if err := a.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("exhausted %d attempts: %w", a.cfg.RetryAttempts, lastErr)
}

func (a *Aggregator) backoff(attempt int) time.Duration {
	if a.cfg.RetryMultiplier > 1 {
		return time.Duration(float64(a.cfg.RetryBaseDelay) * math.Pow(a.cfg.RetryMultiplier, float64(attempt-1)))
	}
	return a.cfg.RetryBaseDelay * time.Duration(attempt)
}

func groupByFor(dim Dimension) billing.GroupBy {
	switch dim {
	case DimensionService:
		return billing.GroupByService
	case DimensionResource:
		return billing.GroupByResource
	case DimensionResourceGroup:
		return billing.GroupByResourceGroup
	default:
		return billing.GroupByNone
	}
}

// buildSeries zero-fills gaps so every calendar day in the window has
// exactly one point; upstream omissions are zero-cost days, never
// silently dropped.
func buildSeries(start, end time.Time, daily map[time.Time]float64, currency string) *CostSeries {
	var points []CostPoint
	var total float64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		c := daily[d]
		points = append(points, CostPoint{Date: d, Cost: c, Currency: currency})
		total += c
	}
	return &CostSeries{
		Points:     points,
		Start:      start,
		End:        end,
		Total:      total,
		Currency:   currency,
		Provenance: ProvenanceReal,
	}
}

func buildBreakdowns(groups map[string]float64, total float64, dim Dimension) []DimensionBreakdown {
	if len(groups) == 0 {
		return nil
	}
	out := make([]DimensionBreakdown, 0, len(groups))
	for key, c := range groups {
		pct := 0.0
		if total > 0 {
			pct = c / total * 100
		}
		b := DimensionBreakdown{Key: key, Cost: c, PercentOfTotal: pct}
		if dim == DimensionService {
			b.Category = Categorize(key)
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cost > out[j].Cost })
	return out
}
