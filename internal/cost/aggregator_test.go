package cost

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"tasnim.dev/costlens/internal/aws/billing"
)

type mockBillingClient struct {
	queryCostsFunc func(ctx context.Context, q billing.Query) ([]billing.Row, error)
	calls          int
}

func (m *mockBillingClient) QueryCosts(ctx context.Context, q billing.Query) ([]billing.Row, error) {
	m.calls++
	return m.queryCostsFunc(ctx, q)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fastConfig removes the inter-call delay so tests don't block on the
// limiter.
func fastConfig() AggregatorConfig {
	cfg := DefaultAggregatorConfig()
	cfg.InterCallDelay = 0
	cfg.RetryBaseDelay = time.Millisecond
	return cfg
}

func newTestAggregator(client BillingClient, cfg AggregatorConfig) *Aggregator {
	a := NewAggregator(client, cfg, testLogger())
	a.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return a
}

func window() (time.Time, time.Time) {
	return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
}

func TestFetchSeries_ZeroFillsMissingDays(t *testing.T) {
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			return []billing.Row{
				{Date: "2026-08-01", Cost: 10.00, Currency: "USD"},
				{Date: "2026-08-03", Cost: 30.00, Currency: "USD"},
				{Date: "2026-08-05", Cost: 50.00, Currency: "USD"},
			}, nil
		},
	}
	a := newTestAggregator(mock, fastConfig())

	start, end := window()
	series, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone)
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}

	if len(series.Points) != 5 {
		t.Fatalf("got %d points, want 5 (one per calendar day)", len(series.Points))
	}
	if series.Points[1].Cost != 0 || series.Points[3].Cost != 0 {
		t.Error("missing upstream days should be zero-cost points")
	}
	if series.Total != 90.00 {
		t.Errorf("total = %.2f, want 90.00", series.Total)
	}
	for i := 1; i < len(series.Points); i++ {
		if !series.Points[i].Date.After(series.Points[i-1].Date) {
			t.Error("points should be in ascending date order")
		}
	}
}

func TestFetchSeries_NormalizesCompactDates(t *testing.T) {
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			return []billing.Row{
				{Date: "20260801", Cost: 10.00, Currency: "USD"},
				{Date: "2026-08-02", Cost: 20.00, Currency: "USD"},
			}, nil
		},
	}
	a := newTestAggregator(mock, fastConfig())

	start, end := window()
	series, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone)
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if series.Points[0].Cost != 10.00 {
		t.Errorf("compact-coded day cost = %.2f, want 10.00", series.Points[0].Cost)
	}
	if series.Points[1].Cost != 20.00 {
		t.Errorf("ISO-coded day cost = %.2f, want 20.00", series.Points[1].Cost)
	}
}

func TestFetchSeries_CacheHitSkipsUpstream(t *testing.T) {
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			return []billing.Row{{Date: "2026-08-01", Cost: 10.00, Currency: "USD"}}, nil
		},
	}
	a := newTestAggregator(mock, fastConfig())

	start, end := window()
	first, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if mock.calls != 1 {
		t.Errorf("upstream calls = %d, want exactly 1 for an unexpired cache", mock.calls)
	}
	if first.Total != second.Total {
		t.Error("cached fetch should return the same series")
	}
}

func TestFetchSeries_DistinctWindowsQuerySeparately(t *testing.T) {
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			return nil, nil
		},
	}
	a := newTestAggregator(mock, fastConfig())

	start, end := window()
	if _, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.FetchSeries(context.Background(), start.AddDate(0, 0, -7), end, DimensionNone); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.FetchSeries(context.Background(), start, end, DimensionService); err != nil {
		t.Fatal(err)
	}

	if mock.calls != 3 {
		t.Errorf("upstream calls = %d, want 3 for three distinct cache keys", mock.calls)
	}
}

func TestFetchSeries_ExpiredEntryRefetches(t *testing.T) {
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			return nil, nil
		},
	}
	cfg := fastConfig()
	cfg.CacheTTL = 10 * time.Minute
	a := newTestAggregator(mock, cfg)

	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	a.cache.now = func() time.Time { return now }

	start, end := window()
	if _, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone); err != nil {
		t.Fatal(err)
	}

	now = now.Add(11 * time.Minute)
	if _, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone); err != nil {
		t.Fatal(err)
	}

	if mock.calls != 2 {
		t.Errorf("upstream calls = %d, want 2 after TTL expiry", mock.calls)
	}
}

func TestFetchSeries_BreakdownPercentagesSumToHundred(t *testing.T) {
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			return []billing.Row{
				{Date: "2026-08-01", Cost: 33.33, Currency: "USD", GroupKey: "Amazon EC2"},
				{Date: "2026-08-01", Cost: 33.33, Currency: "USD", GroupKey: "Amazon S3"},
				{Date: "2026-08-01", Cost: 33.34, Currency: "USD", GroupKey: "Amazon RDS"},
			}, nil
		},
	}
	a := newTestAggregator(mock, fastConfig())

	start, end := window()
	_, breakdowns, err := a.FetchSeries(context.Background(), start, end, DimensionService)
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}

	if len(breakdowns) != 3 {
		t.Fatalf("got %d breakdowns, want 3", len(breakdowns))
	}
	var sum float64
	for _, b := range breakdowns {
		sum += b.PercentOfTotal
	}
	if math.Abs(sum-100) > 0.01 {
		t.Errorf("breakdown percentages sum to %.4f, want 100 within 0.01", sum)
	}
	for i := 1; i < len(breakdowns); i++ {
		if breakdowns[i].Cost > breakdowns[i-1].Cost {
			t.Error("breakdowns should be sorted by cost, descending")
		}
	}
	for _, b := range breakdowns {
		want := Categorize(b.Key)
		if b.Category != want {
			t.Errorf("%s category = %q, want %q", b.Key, b.Category, want)
		}
		if b.Category == "" {
			t.Errorf("%s should carry a category on service breakdowns", b.Key)
		}
	}
}

func TestFetchSeries_RetriesOnlyOnRateLimit(t *testing.T) {
	boom := errors.New("access denied")
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			return nil, boom
		},
	}
	a := newTestAggregator(mock, fastConfig())

	start, end := window()
	_, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone)
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (no retry on non-rate-limit errors)", mock.calls)
	}
	if !errors.Is(err, boom) {
		t.Error("original error should survive wrapping")
	}
}

func TestFetchSeries_RetriesThroughRateLimit(t *testing.T) {
	attempts := 0
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			attempts++
			if attempts < 3 {
				return nil, &billing.RateLimitError{Err: errors.New("ThrottlingException")}
			}
			return []billing.Row{{Date: "2026-08-01", Cost: 5.00, Currency: "USD"}}, nil
		},
	}
	a := newTestAggregator(mock, fastConfig())

	start, end := window()
	series, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone)
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if series.Total != 5.00 {
		t.Errorf("total = %.2f, want 5.00", series.Total)
	}
}

func TestFetchSeries_ExhaustsRetryBudget(t *testing.T) {
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			return nil, &billing.RateLimitError{Err: errors.New("ThrottlingException")}
		},
	}
	cfg := fastConfig()
	cfg.RetryAttempts = 3
	a := newTestAggregator(mock, cfg)

	start, end := window()
	_, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if mock.calls != 3 {
		t.Errorf("upstream calls = %d, want 3", mock.calls)
	}
	var rle *billing.RateLimitError
	if !errors.As(err, &rle) {
		t.Error("final error should still identify as a rate limit")
	}
}

func TestBackoff_LinearAndExponential(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryBaseDelay = 2 * time.Second

	linear := newTestAggregator(&mockBillingClient{}, cfg)
	for attempt, want := range map[int]time.Duration{1: 2 * time.Second, 2: 4 * time.Second, 3: 6 * time.Second} {
		if got := linear.backoff(attempt); got != want {
			t.Errorf("linear backoff(%d) = %v, want %v", attempt, got, want)
		}
	}

	cfg.RetryMultiplier = 2
	exp := newTestAggregator(&mockBillingClient{}, cfg)
	for attempt, want := range map[int]time.Duration{1: 2 * time.Second, 2: 4 * time.Second, 3: 8 * time.Second} {
		if got := exp.backoff(attempt); got != want {
			t.Errorf("exponential backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestFetchSeries_FallbackSubstitutesSyntheticSeries(t *testing.T) {
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			return nil, errors.New("connection refused")
		},
	}
	cfg := fastConfig()
	cfg.EnableFallback = true
	a := newTestAggregator(mock, cfg)

	start, end := window()
	series, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone)
	if err != nil {
		t.Fatalf("fallback should not surface the upstream error, got %v", err)
	}
	if !series.Synthetic() {
		t.Error("substituted series must carry synthetic provenance")
	}
	if len(series.Points) != 5 {
		t.Errorf("got %d points, want 5", len(series.Points))
	}

	again, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone)
	if err != nil {
		t.Fatal(err)
	}
	if series.Total != again.Total {
		t.Error("synthetic substitution must be deterministic for the same window")
	}
}

func TestFetchSeries_InvalidWindow(t *testing.T) {
	a := newTestAggregator(&mockBillingClient{}, fastConfig())

	start, end := window()
	if _, _, err := a.FetchSeries(context.Background(), end, start, DimensionNone); err == nil {
		t.Error("end before start should be rejected")
	}
}

func TestFetchResourceSeries_GroupsPerResource(t *testing.T) {
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			if q.GroupBy != billing.GroupByResource {
				t.Errorf("GroupBy = %q, want %q", q.GroupBy, billing.GroupByResource)
			}
			return []billing.Row{
				{Date: "2026-08-01", Cost: 10.00, Currency: "USD", GroupKey: "vm-a"},
				{Date: "2026-08-02", Cost: 12.00, Currency: "USD", GroupKey: "vm-a"},
				{Date: "2026-08-01", Cost: 3.00, Currency: "USD", GroupKey: "vm-b"},
			}, nil
		},
	}
	a := newTestAggregator(mock, fastConfig())

	start, end := window()
	byResource, err := a.FetchResourceSeries(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchResourceSeries: %v", err)
	}

	if len(byResource) != 2 {
		t.Fatalf("got %d resources, want 2", len(byResource))
	}
	if byResource["vm-a"].Total != 22.00 {
		t.Errorf("vm-a total = %.2f, want 22.00", byResource["vm-a"].Total)
	}
	if got := len(byResource["vm-b"].Points); got != 5 {
		t.Errorf("vm-b points = %d, want 5 (zero-filled)", got)
	}

	if _, err := a.FetchResourceSeries(context.Background(), start, end); err != nil {
		t.Fatal(err)
	}
	if mock.calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (second fetch cached)", mock.calls)
	}
}

func TestFetchSeries_UpstreamEndIsExclusive(t *testing.T) {
	var got billing.Query
	mock := &mockBillingClient{
		queryCostsFunc: func(ctx context.Context, q billing.Query) ([]billing.Row, error) {
			got = q
			return nil, nil
		},
	}
	a := newTestAggregator(mock, fastConfig())

	start, end := window()
	if _, _, err := a.FetchSeries(context.Background(), start, end, DimensionNone); err != nil {
		t.Fatal(err)
	}
	if !got.End.Equal(end.AddDate(0, 0, 1)) {
		t.Errorf("upstream end = %v, want day after %v", got.End, end)
	}
}
