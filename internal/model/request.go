package model

import "time"

// Dataset names a backend table family.
type Dataset string

const (
	DatasetEvents       Dataset = "events"
	DatasetTransactions Dataset = "transactions"
	DatasetSearchIssues Dataset = "search_issues"
	DatasetOutcomes     Dataset = "outcomes_hourly"
	DatasetOutcomesRaw  Dataset = "outcomes_raw"
)

// Datasets lists every known dataset identifier.
func Datasets() []Dataset {
	return []Dataset{
		DatasetEvents,
		DatasetTransactions,
		DatasetSearchIssues,
		DatasetOutcomes,
		DatasetOutcomesRaw,
	}
}

// Condition is a single filter predicate in (column, operator, value)
// form. Value may be a scalar or a slice for IN predicates.
type Condition struct {
	Column string
	Op     string
	Value  any
}

// Clone returns a copy whose slice value, if any, is independent of the
// receiver. Conditions from the registry are cloned into every request
// so downstream mutation cannot leak across calls.
func (c Condition) Clone() Condition {
	switch v := c.Value.(type) {
	case []string:
		c.Value = append([]string(nil), v...)
	case []int64:
		c.Value = append([]int64(nil), v...)
	case []Outcome:
		c.Value = append([]Outcome(nil), v...)
	case []Category:
		c.Value = append([]Category(nil), v...)
	case []any:
		c.Value = append([]any(nil), v...)
	}
	return c
}

// CloneConditions deep-copies a condition list.
func CloneConditions(conds []Condition) []Condition {
	if conds == nil {
		return nil
	}
	out := make([]Condition, len(conds))
	for i, c := range conds {
		out[i] = c.Clone()
	}
	return out
}

// Aggregation is one output expression of a backend request. Either
// Function (+optional Column) or a raw Expression is set; the result is
// emitted under Alias.
type Aggregation struct {
	Function   string
	Column     string
	Expression string
	Alias      string
}

// ColumnExpr is a fixed projection column, used by models whose
// aggregate target is a collection column that must be expanded
// (array-joined) before grouping.
type ColumnExpr struct {
	Function string
	Column   string
	Alias    string
}

// QueryRequest is a single assembled backend aggregation request.
type QueryRequest struct {
	Dataset         Dataset
	Start           time.Time
	End             time.Time
	GroupBy         []string
	Conditions      []Condition
	FilterKeys      map[string][]string
	Aggregations    []Aggregation
	Rollup          int64
	Limit           int
	OrderBy         []string
	SelectedColumns []ColumnExpr
	Referrer        string
	UseCache        bool
}

// HasExpressionAggregation reports whether any aggregation is a raw
// expression, i.e. the synthetic time-bucket workaround is in play.
func (r *QueryRequest) HasExpressionAggregation() bool {
	for _, agg := range r.Aggregations {
		if agg.Expression != "" {
			return true
		}
	}
	return false
}
