package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"

	"metrics-query-service/internal/model"
	"metrics-query-service/internal/reshape"
	"metrics-query-service/internal/rollup"
)

const (
	// aggregateAs is the output alias every request's aggregate is
	// emitted under; the unnest step keys off it.
	aggregateAs = "aggregate"

	// manualTimeAlias is the synthetic time column used for datasets
	// that cannot natively group on the derived time bucket.
	manualTimeAlias = "time_t"

	// rawOutcomesRollup is the one sub-hour granularity the outcomes
	// family supports; it is served from the unaggregated table.
	rawOutcomesRollup = 10

	maxRows = 10000
)

// queryParams are the normalized knobs one facade call configures.
type queryParams struct {
	rollup       int64
	environments []string
	aggregation  string
	groupOnModel bool
	groupOnTime  bool
	conditions   []model.Condition
	useCache     bool
	jitter       int64
}

// queryPlan is one fully assembled backend request plus everything the
// reshaping steps need afterwards.
type queryPlan struct {
	req        *model.QueryRequest
	expected   map[string][]string
	allowed    *reshape.AllowedKeys
	series     []int64
	manualTime bool
	selected   bool
	empty      bool
}

// keyTotalModels carry keys collected from mixed sources upstream and
// are deduplicated before use.
var keyTotalModels = map[model.Model]bool{
	model.ModelKeyTotalReceived:    true,
	model.ModelKeyTotalRejected:    true,
	model.ModelKeyTotalBlacklisted: true,
}

// manualTimeModels group on the synthetic bucket expression because the
// search issues dataset cannot bucket on a derived time column natively.
var manualTimeModels = map[model.Model]bool{
	model.ModelGroupProfiling:              true,
	model.ModelUsersAffectedByProfileGroup: true,
}

// buildPlan translates one facade call into a single backend request:
// grouping, ordering, filter binding, mandatory model conditions and
// the row limit, with the model-specific special cases applied.
func buildPlan(m model.Model, keys any, start, end time.Time, p queryParams) (*queryPlan, error) {
	settings, err := model.Settings(m)
	if err != nil {
		return nil, err
	}

	nk, err := normalizeKeys(keys)
	if err != nil {
		return nil, err
	}
	if keyTotalModels[m] {
		nk.primary = lo.Uniq(nk.primary)
		nk.allowed = reshape.FlatKeys(nk.primary)
	}

	dataset := settings.Dataset
	if p.rollup == rawOutcomesRollup && dataset == model.DatasetOutcomes {
		dataset = model.DatasetOutcomesRaw
	}

	resolved, series := rollup.Resolve(start, end, p.rollup)
	series = rollup.AddJitter(series, start, resolved, p.jitter)
	queryStart := time.Unix(series[0], 0).UTC()
	queryEnd := time.Unix(series[len(series)-1]+resolved, 0).UTC()

	manualTime := manualTimeModels[m]
	aggColumn := settings.AggregateColumn

	var groupBy []string
	if p.groupOnModel && settings.GroupBy != "" {
		groupBy = append(groupBy, settings.GroupBy)
	}
	timeColumn := reshape.TimeGroup
	if manualTime {
		timeColumn = manualTimeAlias
	}
	if p.groupOnTime {
		groupBy = append(groupBy, timeColumn)
	}
	// count() counts rows, so COUNT(col) has to become
	// GROUP BY col; COUNT(*) to keep the per-value cardinality.
	if p.aggregation == "count()" && aggColumn != "" {
		groupBy = append(groupBy, aggColumn)
		aggColumn = ""
	}

	aggregations := []model.Aggregation{
		{Function: p.aggregation, Column: aggColumn, Alias: aggregateAs},
	}
	if p.groupOnTime && manualTime {
		aggregations = append(aggregations, model.Aggregation{
			Expression: manualTimeExpression(resolved),
			Alias:      manualTimeAlias,
		})
	}

	filterKeys := make(map[string][]string)
	if settings.GroupBy != "" && nk.primary != nil {
		filterKeys[settings.GroupBy] = nk.primary
	}
	if settings.AggregateColumn != "" && nk.secondary != nil {
		filterKeys[settings.AggregateColumn] = nk.secondary
	}
	if len(p.environments) > 0 {
		filterKeys["environment"] = p.environments
	}

	var orderBy []string
	if p.groupOnTime {
		orderBy = append(orderBy, "-"+timeColumn)
	}
	if p.groupOnModel && settings.GroupBy != "" {
		orderBy = append(orderBy, settings.GroupBy)
	}

	limit := len(nk.primary) * len(series)
	if limit > maxRows {
		limit = maxRows
	}

	expected := make(map[string][]string, len(filterKeys)+1)
	for col, vals := range filterKeys {
		expected[col] = vals
	}
	if p.groupOnTime {
		expected[timeColumn] = lo.Map(series, func(ts int64, _ int) string {
			return strconv.FormatInt(ts, 10)
		})
	}

	req := &model.QueryRequest{
		Dataset:         dataset,
		Start:           queryStart,
		End:             queryEnd,
		GroupBy:         groupBy,
		Conditions:      append(append([]model.Condition{}, p.conditions...), model.CloneConditions(settings.Conditions)...),
		FilterKeys:      filterKeys,
		Aggregations:    aggregations,
		Rollup:          resolved,
		Limit:           limit,
		OrderBy:         orderBy,
		SelectedColumns: settings.SelectedColumns,
		Referrer:        fmt.Sprintf("tsdb-modelid:%d", int(m)),
		UseCache:        p.useCache,
	}

	return &queryPlan{
		req:        req,
		expected:   expected,
		allowed:    nk.allowed,
		series:     series,
		manualTime: manualTime,
		selected:   len(settings.SelectedColumns) > 0,
		empty:      len(nk.primary) == 0,
	}, nil
}

// manualTimeExpression buckets the raw timestamp at the given rollup as
// an ordinary column expression: start-of shortcuts for exact minute,
// hour and day rollups, integer division otherwise.
func manualTimeExpression(rollup int64) string {
	switch rollup {
	case 60:
		return "toUnixTimestamp(toStartOfMinute(timestamp))"
	case 3600:
		return "toUnixTimestamp(toStartOfHour(timestamp))"
	case 86400:
		return "toUnixTimestamp(toStartOfDay(timestamp))"
	}
	return fmt.Sprintf("multiply(intDiv(toUInt32(toUnixTimestamp(timestamp)), %d), %d)", rollup, rollup)
}
