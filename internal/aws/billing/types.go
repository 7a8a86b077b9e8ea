package billing

import "time"

// GroupBy selects the grouping dimension for a usage query.
type GroupBy string

const (
	GroupByNone          GroupBy = ""
	GroupByService       GroupBy = "SERVICE"
	GroupByResource      GroupBy = "RESOURCE_ID"
	GroupByResourceGroup GroupBy = "RESOURCE_GROUP"
)

// Query describes one cost-and-usage request against the billing API.
type Query struct {
	Start   time.Time
	End     time.Time
	GroupBy GroupBy
}

// Row is one raw billing observation as returned by the upstream API.
// Date is left in whatever representation the API used; callers
// normalize it.
type Row struct {
	Date     string
	Cost     float64
	Currency string
	GroupKey string
}
