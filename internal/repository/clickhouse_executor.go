package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"metrics-query-service/internal/logger"
	"metrics-query-service/internal/model"
	"metrics-query-service/internal/reshape"
)

type clickhouseExecutor struct {
	conn clickhouse.Conn
	log  *logger.Logger
}

// NewClickHouseExecutor creates a QueryExecutor backed by ClickHouse.
func NewClickHouseExecutor(conn clickhouse.Conn, log *logger.Logger) QueryExecutor {
	return &clickhouseExecutor{conn: conn, log: log}
}

func (e *clickhouseExecutor) Execute(ctx context.Context, req *model.QueryRequest) (*reshape.Node, error) {
	query, err := buildSQL(req)
	if err != nil {
		return nil, err
	}
	e.log.Debugw("executing aggregation query", "referrer", req.Referrer, "dataset", req.Dataset)

	rows, err := e.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", req.Dataset, err)
	}
	defer rows.Close()

	scanItems := wantsItemLeaf(req)
	// Extra output columns (fixed projections, synthetic time aliases)
	// force the backend response to wrap the aggregate one level deeper;
	// the reshaper unwraps it. With no grouping there is nothing to wrap.
	wrapLeaf := len(req.GroupBy) > 0 &&
		(len(req.SelectedColumns) > 0 || req.HasExpressionAggregation())

	result := reshape.Branch()
	var scalarResult *reshape.Node

	for rows.Next() {
		groups := make([]string, len(req.GroupBy))
		dest := make([]any, 0, len(groups)+1)
		for i := range groups {
			dest = append(dest, &groups[i])
		}

		var leaf *reshape.Node
		if scanItems {
			var items []string
			dest = append(dest, &items)
			if err := rows.Scan(dest...); err != nil {
				return nil, fmt.Errorf("scan %s row: %w", req.Dataset, err)
			}
			leaf = reshape.ItemList(items...)
		} else {
			var value int64
			dest = append(dest, &value)
			if err := rows.Scan(dest...); err != nil {
				return nil, fmt.Errorf("scan %s row: %w", req.Dataset, err)
			}
			leaf = reshape.Scalar(value)
		}

		if len(groups) == 0 {
			scalarResult = leaf
			continue
		}
		if wrapLeaf {
			leaf = reshape.Branch().Set(aggregateAlias(req), leaf)
		}

		node := result
		for _, g := range groups[:len(groups)-1] {
			child := node.Get(g)
			if child == nil {
				child = reshape.Branch()
				node.Set(g, child)
			}
			node = child
		}
		node.Set(groups[len(groups)-1], leaf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s rows: %w", req.Dataset, err)
	}

	if len(req.GroupBy) == 0 {
		if scalarResult != nil {
			return scalarResult, nil
		}
		return reshape.Scalar(0), nil
	}
	return result, nil
}

// buildSQL renders one aggregation request into a single SELECT. Group
// columns are cast to String so response keys are uniform; filter keys
// compare on the stringified column for the same reason.
func buildSQL(req *model.QueryRequest) (string, error) {
	agg, err := scalarAggregation(req)
	if err != nil {
		return "", err
	}

	selects := make([]string, 0, len(req.GroupBy)+1)
	for _, group := range req.GroupBy {
		expr, err := groupExpression(group, req)
		if err != nil {
			return "", err
		}
		selects = append(selects, fmt.Sprintf("toString(%s) AS %s", expr, group))
	}
	selects = append(selects, aggregateExpression(agg))

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(fmt.Sprintf(" FROM %s", req.Dataset))

	for _, col := range req.SelectedColumns {
		if col.Function != "arrayJoin" {
			return "", fmt.Errorf("unsupported projection function: %s", col.Function)
		}
		sb.WriteString(fmt.Sprintf(" ARRAY JOIN %s AS %s", col.Column, col.Alias))
	}

	where := []string{
		fmt.Sprintf("timestamp >= %s", formatTime(req.Start)),
		fmt.Sprintf("timestamp < %s", formatTime(req.End)),
	}
	for _, col := range sortedKeys(req.FilterKeys) {
		where = append(where, fmt.Sprintf("toString(%s) IN (%s)", col, quoteStrings(req.FilterKeys[col])))
	}
	for _, cond := range req.Conditions {
		rendered, err := renderCondition(cond)
		if err != nil {
			return "", err
		}
		where = append(where, rendered)
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(where, " AND "))

	if len(req.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(req.GroupBy, ", "))
	}

	if len(req.OrderBy) > 0 {
		orders := make([]string, len(req.OrderBy))
		for i, o := range req.OrderBy {
			if col, ok := strings.CutPrefix(o, "-"); ok {
				orders[i] = col + " DESC"
			} else {
				orders[i] = o
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	if req.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", req.Limit))
	}

	settings := []string{}
	if req.Referrer != "" {
		settings = append(settings, fmt.Sprintf("log_comment = %s", quoteString(req.Referrer)))
	}
	if req.UseCache {
		settings = append(settings, "use_query_cache = 1")
	}
	if len(settings) > 0 {
		sb.WriteString(" SETTINGS ")
		sb.WriteString(strings.Join(settings, ", "))
	}

	return sb.String(), nil
}

// scalarAggregation returns the one aggregation producing the leaf
// value; expression aggregations are group aliases, not leaves.
func scalarAggregation(req *model.QueryRequest) (model.Aggregation, error) {
	for _, agg := range req.Aggregations {
		if agg.Expression == "" {
			return agg, nil
		}
	}
	return model.Aggregation{}, fmt.Errorf("request for %s has no aggregate function", req.Dataset)
}

func aggregateAlias(req *model.QueryRequest) string {
	for _, agg := range req.Aggregations {
		if agg.Expression == "" {
			return agg.Alias
		}
	}
	return "aggregate"
}

func wantsItemLeaf(req *model.QueryRequest) bool {
	for _, agg := range req.Aggregations {
		if agg.Expression == "" {
			return strings.HasPrefix(agg.Function, "topK")
		}
	}
	return false
}

func groupExpression(group string, req *model.QueryRequest) (string, error) {
	if group == reshape.TimeGroup {
		if req.Rollup <= 0 {
			return "", fmt.Errorf("time grouping requires a rollup")
		}
		return fmt.Sprintf("intDiv(toUnixTimestamp(timestamp), %d) * %d", req.Rollup, req.Rollup), nil
	}
	// A synthetic time alias resolves to its bucketing expression.
	for _, agg := range req.Aggregations {
		if agg.Expression != "" && agg.Alias == group {
			return agg.Expression, nil
		}
	}
	return group, nil
}

func aggregateExpression(agg model.Aggregation) string {
	if strings.HasPrefix(agg.Function, "topK") {
		return fmt.Sprintf("arrayMap(v -> toString(v), %s(%s)) AS %s", agg.Function, agg.Column, agg.Alias)
	}
	inner := agg.Function
	if inner != "count()" {
		inner = fmt.Sprintf("%s(%s)", agg.Function, agg.Column)
	}
	return fmt.Sprintf("toInt64(%s) AS %s", inner, agg.Alias)
}

func renderCondition(cond model.Condition) (string, error) {
	switch cond.Op {
	case "=", "!=", ">", ">=", "<", "<=":
		return fmt.Sprintf("%s %s %s", cond.Column, cond.Op, renderValue(cond.Value)), nil
	case "IN", "NOT IN":
		return fmt.Sprintf("%s %s (%s)", cond.Column, cond.Op, renderList(cond.Value)), nil
	default:
		return "", fmt.Errorf("unsupported condition operator: %q", cond.Op)
	}
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		return quoteString(val)
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case model.Outcome:
		return fmt.Sprintf("%d", int(val))
	case model.Category:
		return fmt.Sprintf("%d", int(val))
	default:
		return quoteString(fmt.Sprintf("%v", val))
	}
}

func renderList(v any) string {
	var parts []string
	switch vals := v.(type) {
	case []string:
		for _, item := range vals {
			parts = append(parts, renderValue(item))
		}
	case []int64:
		for _, item := range vals {
			parts = append(parts, renderValue(item))
		}
	case []model.Outcome:
		for _, item := range vals {
			parts = append(parts, renderValue(item))
		}
	case []model.Category:
		for _, item := range vals {
			parts = append(parts, renderValue(item))
		}
	case []any:
		for _, item := range vals {
			parts = append(parts, renderValue(item))
		}
	default:
		parts = append(parts, renderValue(v))
	}
	return strings.Join(parts, ", ")
}

func quoteStrings(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = quoteString(v)
	}
	return strings.Join(quoted, ", ")
}

func quoteString(v string) string {
	escaped := strings.ReplaceAll(v, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

func formatTime(t time.Time) string {
	return fmt.Sprintf("toDateTime('%s', 'UTC')", t.UTC().Format("2006-01-02 15:04:05"))
}

// sortedKeys keeps the WHERE clause deterministic across calls.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
