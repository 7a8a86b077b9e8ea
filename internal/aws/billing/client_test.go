package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/smithy-go"
)

type mockCostExplorerAPI struct {
	getCostAndUsageFunc func(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

func (m *mockCostExplorerAPI) GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	return m.getCostAndUsageFunc(ctx, params, optFns...)
}

func testQuery() Query {
	return Query{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestQueryCosts_UngroupedUsesTotals(t *testing.T) {
	mock := &mockCostExplorerAPI{
		getCostAndUsageFunc: func(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
			if len(params.GroupBy) != 0 {
				t.Error("ungrouped query should not set GroupBy")
			}
			return &costexplorer.GetCostAndUsageOutput{
				ResultsByTime: []types.ResultByTime{
					{
						TimePeriod: &types.DateInterval{Start: awssdk.String("2026-08-01"), End: awssdk.String("2026-08-02")},
						Total: map[string]types.MetricValue{
							"UnblendedCost": {Amount: awssdk.String("42.50"), Unit: awssdk.String("USD")},
						},
					},
				},
			}, nil
		},
	}

	rows, err := NewClientWithAPI(mock).QueryCosts(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("QueryCosts: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Cost != 42.50 || rows[0].Currency != "USD" || rows[0].GroupKey != "" {
		t.Errorf("unexpected row: %+v", rows[0])
	}
	if rows[0].Date != "2026-08-01" {
		t.Errorf("date = %q, should be the raw upstream value", rows[0].Date)
	}
}

func TestQueryCosts_GroupedByService(t *testing.T) {
	mock := &mockCostExplorerAPI{
		getCostAndUsageFunc: func(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
			if len(params.GroupBy) != 1 || awssdk.ToString(params.GroupBy[0].Key) != "SERVICE" {
				t.Errorf("GroupBy = %+v, want SERVICE dimension", params.GroupBy)
			}
			return &costexplorer.GetCostAndUsageOutput{
				ResultsByTime: []types.ResultByTime{
					{
						TimePeriod: &types.DateInterval{Start: awssdk.String("2026-08-01"), End: awssdk.String("2026-08-02")},
						Groups: []types.Group{
							{
								Keys:    []string{"Amazon EC2"},
								Metrics: map[string]types.MetricValue{"UnblendedCost": {Amount: awssdk.String("50.00"), Unit: awssdk.String("USD")}},
							},
							{
								Keys:    []string{"Amazon S3"},
								Metrics: map[string]types.MetricValue{"UnblendedCost": {Amount: awssdk.String("20.00"), Unit: awssdk.String("USD")}},
							},
						},
					},
				},
			}, nil
		},
	}

	q := testQuery()
	q.GroupBy = GroupByService
	rows, err := NewClientWithAPI(mock).QueryCosts(context.Background(), q)
	if err != nil {
		t.Fatalf("QueryCosts: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].GroupKey != "Amazon EC2" || rows[1].GroupKey != "Amazon S3" {
		t.Errorf("unexpected group keys: %+v", rows)
	}
}

func TestQueryCosts_ResourceGroupUsesTag(t *testing.T) {
	mock := &mockCostExplorerAPI{
		getCostAndUsageFunc: func(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
			if len(params.GroupBy) != 1 {
				t.Fatal("expected one GroupBy definition")
			}
			if params.GroupBy[0].Type != types.GroupDefinitionTypeTag {
				t.Error("resource group queries should group by cost allocation tag")
			}
			if awssdk.ToString(params.GroupBy[0].Key) != "Project" {
				t.Errorf("tag key = %q, want Project", awssdk.ToString(params.GroupBy[0].Key))
			}
			return &costexplorer.GetCostAndUsageOutput{}, nil
		},
	}

	q := testQuery()
	q.GroupBy = GroupByResourceGroup
	if _, err := NewClientWithAPI(mock).QueryCosts(context.Background(), q); err != nil {
		t.Fatalf("QueryCosts: %v", err)
	}
}

func TestQueryCosts_FollowsPagination(t *testing.T) {
	calls := 0
	mock := &mockCostExplorerAPI{
		getCostAndUsageFunc: func(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
			calls++
			out := &costexplorer.GetCostAndUsageOutput{
				ResultsByTime: []types.ResultByTime{
					{
						TimePeriod: &types.DateInterval{Start: awssdk.String("2026-08-01"), End: awssdk.String("2026-08-02")},
						Total: map[string]types.MetricValue{
							"UnblendedCost": {Amount: awssdk.String("10.00"), Unit: awssdk.String("USD")},
						},
					},
				},
			}
			if calls == 1 {
				if params.NextPageToken != nil {
					t.Error("first call should not carry a page token")
				}
				out.NextPageToken = awssdk.String("page-2")
			} else if awssdk.ToString(params.NextPageToken) != "page-2" {
				t.Errorf("second call token = %q, want page-2", awssdk.ToString(params.NextPageToken))
			}
			return out, nil
		},
	}

	rows, err := NewClientWithAPI(mock).QueryCosts(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("QueryCosts: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows, want 2 (one per page)", len(rows))
	}
}

type stubAPIError struct{ code string }

func (e *stubAPIError) Error() string                 { return e.code }
func (e *stubAPIError) ErrorCode() string             { return e.code }
func (e *stubAPIError) ErrorMessage() string          { return e.code }
func (e *stubAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }

func TestQueryCosts_ClassifiesThrottling(t *testing.T) {
	for _, code := range []string{"ThrottlingException", "Throttling", "TooManyRequestsException", "LimitExceededException", "RequestLimitExceeded"} {
		mock := &mockCostExplorerAPI{
			getCostAndUsageFunc: func(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
				return nil, &stubAPIError{code: code}
			},
		}

		_, err := NewClientWithAPI(mock).QueryCosts(context.Background(), testQuery())
		if !IsRateLimit(err) {
			t.Errorf("code %s should classify as a rate limit, got %v", code, err)
		}
	}
}

func TestQueryCosts_OtherErrorsPassThrough(t *testing.T) {
	mock := &mockCostExplorerAPI{
		getCostAndUsageFunc: func(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
			return nil, &stubAPIError{code: "AccessDeniedException"}
		},
	}

	_, err := NewClientWithAPI(mock).QueryCosts(context.Background(), testQuery())
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRateLimit(err) {
		t.Error("access denied must not classify as a rate limit")
	}
}

func TestIsRateLimit_Wrapped(t *testing.T) {
	inner := &RateLimitError{Err: errors.New("throttled")}
	wrapped := errors.Join(errors.New("outer"), inner)
	if !IsRateLimit(wrapped) {
		t.Error("IsRateLimit should see through wrapping")
	}
	if IsRateLimit(errors.New("plain")) {
		t.Error("plain errors are not rate limits")
	}
}
