package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/smithy-go"
)

// CostExplorerAPI is the subset of the AWS Cost Explorer client we use.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// Client wraps the AWS Cost Explorer API behind the engine's billing
// query boundary.
type Client struct {
	ce CostExplorerAPI

	// resourceGroupTag is the cost allocation tag used when grouping
	// by resource group.
	resourceGroupTag string
}

// NewClient creates a new billing client from an AWS config.
func NewClient(cfg aws.Config) *Client {
	return &Client{ce: costexplorer.NewFromConfig(cfg), resourceGroupTag: "Project"}
}

// NewClientWithAPI creates a client with a custom API implementation (for testing).
func NewClientWithAPI(api CostExplorerAPI) *Client {
	return &Client{ce: api, resourceGroupTag: "Project"}
}

// RateLimitError marks a billing call rejected by upstream throttling.
// Retry loops treat it as transient; every other failure is terminal.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return fmt.Sprintf("billing API rate limited: %v", e.Err) }
func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// throttleCodes are the smithy error codes Cost Explorer uses when the
// per-account request quota is exceeded.
var throttleCodes = map[string]bool{
	"ThrottlingException":      true,
	"Throttling":               true,
	"TooManyRequestsException": true,
	"LimitExceededException":   true,
	"RequestLimitExceeded":     true,
}

func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && throttleCodes[apiErr.ErrorCode()] {
		return &RateLimitError{Err: err}
	}
	return err
}

// QueryCosts runs one daily-granularity cost query and returns the raw
// rows. Rows keep the upstream date representation untouched; group
// keys are empty when no grouping was requested. Pagination is
// followed to exhaustion.
func (c *Client) QueryCosts(ctx context.Context, q Query) ([]Row, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(q.Start.Format("2006-01-02")),
			End:   aws.String(q.End.Format("2006-01-02")),
		},
		Granularity: types.GranularityDaily,
		Metrics:     []string{"UnblendedCost"},
	}

	switch q.GroupBy {
	case GroupByNone:
	case GroupByResourceGroup:
		input.GroupBy = []types.GroupDefinition{
			{Type: types.GroupDefinitionTypeTag, Key: aws.String(c.resourceGroupTag)},
		}
	default:
		input.GroupBy = []types.GroupDefinition{
			{Type: types.GroupDefinitionTypeDimension, Key: aws.String(string(q.GroupBy))},
		}
	}

	var rows []Row
	var nextToken *string
	for {
		input.NextPageToken = nextToken
		out, err := c.ce.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, classify(err)
		}

		for _, result := range out.ResultsByTime {
			date := aws.ToString(result.TimePeriod.Start)
			if len(result.Groups) == 0 {
				if mv, ok := result.Total["UnblendedCost"]; ok {
					amount, _ := strconv.ParseFloat(aws.ToString(mv.Amount), 64)
					rows = append(rows, Row{
						Date:     date,
						Cost:     amount,
						Currency: aws.ToString(mv.Unit),
					})
				}
				continue
			}
			for _, group := range result.Groups {
				key := ""
				if len(group.Keys) > 0 {
					key = group.Keys[0]
				}
				mv, ok := group.Metrics["UnblendedCost"]
				if !ok {
					continue
				}
				amount, _ := strconv.ParseFloat(aws.ToString(mv.Amount), 64)
				rows = append(rows, Row{
					Date:     date,
					Cost:     amount,
					Currency: aws.ToString(mv.Unit),
					GroupKey: key,
				})
			}
		}

		if out.NextPageToken == nil {
			break
		}
		nextToken = out.NextPageToken
	}

	return rows, nil
}
