// Package service normalizes heterogeneous model queries into single
// backend aggregation requests and reshapes the sparse responses into
// dense caller-facing structures.
package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"metrics-query-service/internal/logger"
	"metrics-query-service/internal/model"
	"metrics-query-service/internal/repository"
	"metrics-query-service/internal/reshape"
)

// QueryOptions carries the optional knobs shared by all query
// operations. Zero values mean "not set".
type QueryOptions struct {
	// Rollup is the requested bucket width in seconds; 0 picks the
	// optimal one for the window.
	Rollup int64
	// Environment restricts results to one environment.
	Environment string
	// Conditions are extra filter predicates applied on top of the
	// model's mandatory ones.
	Conditions []model.Condition
	// Limit is the most-frequent item count; 0 means 10.
	Limit int
	// UseCache is forwarded unmodified to the backend.
	UseCache bool
	// Jitter seeds the deterministic bucket-boundary shift; 0 disables.
	Jitter int64
}

const defaultFrequentLimit = 10

// QueryService is the public query surface. Keys are either a flat key
// collection or a primary→secondary mapping; see normalizeKeys.
type QueryService interface {
	GetRange(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string][]model.Point, error)
	GetDistinctCountsSeries(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string][]model.Point, error)
	GetDistinctCountsTotals(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string]int64, error)
	GetDistinctCountsUnion(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (int64, error)
	GetMostFrequent(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string][]model.ScoredItem, error)
	GetMostFrequentSeries(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string][]model.ScoredBucket, error)
	GetFrequencySeries(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string][]model.CountBucket, error)
	GetFrequencyTotals(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string]map[string]int64, error)
}

type queryService struct {
	executor repository.QueryExecutor
	log      *logger.Logger
	now      func() time.Time
}

// NewQueryService constructs a queryService.
func NewQueryService(executor repository.QueryExecutor, log *logger.Logger) QueryService {
	return &queryService{
		executor: executor,
		log:      log,
		now:      time.Now,
	}
}

// getData builds one backend request, runs it, and applies the
// reshaping pipeline: zerofill, trim, and the conditional unnest.
// An empty primary key set skips the backend entirely.
func (s *queryService) getData(ctx context.Context, m model.Model, keys any, start, end time.Time, p queryParams) (*reshape.Node, error) {
	if end.IsZero() {
		end = s.now()
	}

	plan, err := buildPlan(m, keys, start, end, p)
	if err != nil {
		return nil, err
	}
	if plan.empty {
		return reshape.Branch(), nil
	}

	result, err := s.executor.Execute(ctx, plan.req)
	if err != nil {
		return nil, err
	}
	if plan.selected {
		reshape.Unnest(result, aggregateAs)
	}

	reshape.Zerofill(result, plan.req.GroupBy, plan.expected)
	reshape.Trim(result, plan.req.GroupBy, plan.allowed)

	if p.groupOnTime && plan.manualTime {
		reshape.Unnest(result, aggregateAs)
	}
	return result, nil
}

// GetRange returns per key the counted series over [start, end): event
// counts for event datasets, summed quantities for outcome datasets.
func (s *queryService) GetRange(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string][]model.Point, error) {
	settings, err := model.Settings(m)
	if err != nil {
		return nil, err
	}
	aggregation := "count()"
	if settings.Dataset == model.DatasetOutcomes {
		aggregation = "sum"
	}

	result, err := s.getData(ctx, m, keys, start, end, queryParams{
		rollup:       opts.Rollup,
		environments: environments(opts),
		aggregation:  aggregation,
		groupOnModel: true,
		groupOnTime:  true,
		conditions:   opts.Conditions,
		useCache:     opts.UseCache,
		jitter:       opts.Jitter,
	})
	if err != nil {
		return nil, err
	}
	return scalarSeries(result), nil
}

func (s *queryService) GetDistinctCountsSeries(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string][]model.Point, error) {
	result, err := s.getData(ctx, m, keys, start, end, queryParams{
		rollup:       opts.Rollup,
		environments: environments(opts),
		aggregation:  "uniq",
		groupOnModel: true,
		groupOnTime:  true,
		conditions:   opts.Conditions,
		useCache:     opts.UseCache,
		jitter:       opts.Jitter,
	})
	if err != nil {
		return nil, err
	}
	return scalarSeries(result), nil
}

func (s *queryService) GetDistinctCountsTotals(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string]int64, error) {
	result, err := s.getData(ctx, m, keys, start, end, queryParams{
		rollup:       opts.Rollup,
		environments: environments(opts),
		aggregation:  "uniq",
		groupOnModel: true,
		conditions:   opts.Conditions,
		useCache:     opts.UseCache,
		jitter:       opts.Jitter,
	})
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64, result.Len())
	for key, leaf := range result.Children() {
		totals[key] = leaf.Value()
	}
	return totals, nil
}

// GetDistinctCountsUnion computes one distinct count across all keys:
// model grouping is disabled, the model's mandatory conditions still
// apply.
func (s *queryService) GetDistinctCountsUnion(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (int64, error) {
	result, err := s.getData(ctx, m, keys, start, end, queryParams{
		rollup:       opts.Rollup,
		environments: environments(opts),
		aggregation:  "uniq",
		conditions:   opts.Conditions,
		useCache:     opts.UseCache,
		jitter:       opts.Jitter,
	})
	if err != nil {
		return 0, err
	}
	return result.Value(), nil
}

func (s *queryService) GetMostFrequent(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string][]model.ScoredItem, error) {
	result, err := s.getData(ctx, m, keys, start, end, queryParams{
		rollup:       opts.Rollup,
		environments: environments(opts),
		aggregation:  topKAggregation(opts.Limit),
		groupOnModel: true,
		conditions:   opts.Conditions,
		useCache:     opts.UseCache,
		jitter:       opts.Jitter,
	})
	if err != nil {
		return nil, err
	}

	frequent := make(map[string][]model.ScoredItem, result.Len())
	for key, leaf := range result.Children() {
		frequent[key] = scoreItems(leaf.Items())
	}
	return frequent, nil
}

func (s *queryService) GetMostFrequentSeries(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string][]model.ScoredBucket, error) {
	result, err := s.getData(ctx, m, keys, start, end, queryParams{
		rollup:       opts.Rollup,
		environments: environments(opts),
		aggregation:  topKAggregation(opts.Limit),
		groupOnModel: true,
		groupOnTime:  true,
		conditions:   opts.Conditions,
		useCache:     opts.UseCache,
		jitter:       opts.Jitter,
	})
	if err != nil {
		return nil, err
	}

	series := make(map[string][]model.ScoredBucket, result.Len())
	for key, buckets := range result.Children() {
		scored := make([]model.ScoredBucket, 0, buckets.Len())
		for tsKey, leaf := range buckets.Children() {
			ts, _ := strconv.ParseInt(tsKey, 10, 64)
			scored = append(scored, model.ScoredBucket{Timestamp: ts, Scores: scoreMap(leaf.Items())})
		}
		sort.Slice(scored, func(i, j int) bool { return scored[i].Timestamp < scored[j].Timestamp })
		series[key] = scored
	}
	return series, nil
}

// GetFrequencySeries returns, per primary key and time bucket, the
// per-secondary-key counts; the count() rewrite turns the model's
// aggregate column into the innermost grouping dimension.
func (s *queryService) GetFrequencySeries(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string][]model.CountBucket, error) {
	result, err := s.getData(ctx, m, keys, start, end, queryParams{
		rollup:       opts.Rollup,
		environments: environments(opts),
		aggregation:  "count()",
		groupOnModel: true,
		groupOnTime:  true,
		conditions:   opts.Conditions,
		useCache:     opts.UseCache,
		jitter:       opts.Jitter,
	})
	if err != nil {
		return nil, err
	}

	series := make(map[string][]model.CountBucket, result.Len())
	for key, buckets := range result.Children() {
		counted := make([]model.CountBucket, 0, buckets.Len())
		for tsKey, counts := range buckets.Children() {
			ts, _ := strconv.ParseInt(tsKey, 10, 64)
			counted = append(counted, model.CountBucket{Timestamp: ts, Counts: countMap(counts)})
		}
		sort.Slice(counted, func(i, j int) bool { return counted[i].Timestamp < counted[j].Timestamp })
		series[key] = counted
	}
	return series, nil
}

func (s *queryService) GetFrequencyTotals(ctx context.Context, m model.Model, keys any, start, end time.Time, opts QueryOptions) (map[string]map[string]int64, error) {
	result, err := s.getData(ctx, m, keys, start, end, queryParams{
		rollup:       opts.Rollup,
		environments: environments(opts),
		aggregation:  "count()",
		groupOnModel: true,
		conditions:   opts.Conditions,
		useCache:     opts.UseCache,
		jitter:       opts.Jitter,
	})
	if err != nil {
		return nil, err
	}

	totals := make(map[string]map[string]int64, result.Len())
	for key, counts := range result.Children() {
		totals[key] = countMap(counts)
	}
	return totals, nil
}

func environments(opts QueryOptions) []string {
	if opts.Environment == "" {
		return nil
	}
	return []string{opts.Environment}
}

func topKAggregation(limit int) string {
	if limit <= 0 {
		limit = defaultFrequentLimit
	}
	return "topK(" + strconv.Itoa(limit) + ")"
}

// scalarSeries converts {key: {timestamp: value}} into per-key point
// lists sorted by timestamp.
func scalarSeries(result *reshape.Node) map[string][]model.Point {
	series := make(map[string][]model.Point, result.Len())
	for key, buckets := range result.Children() {
		points := make([]model.Point, 0, buckets.Len())
		for tsKey, leaf := range buckets.Children() {
			ts, _ := strconv.ParseInt(tsKey, 10, 64)
			points = append(points, model.Point{Timestamp: ts, Value: leaf.Value()})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
		series[key] = points
	}
	return series
}

// scoreItems turns a backend ranking (most frequent first) into scored
// items in ascending score order: the least frequent item scores 1.0,
// the most frequent the highest.
func scoreItems(items []string) []model.ScoredItem {
	scored := make([]model.ScoredItem, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		scored = append(scored, model.ScoredItem{Key: items[i], Score: float64(len(items) - i)})
	}
	return scored
}

func scoreMap(items []string) map[string]float64 {
	scores := make(map[string]float64, len(items))
	for i, item := range items {
		scores[item] = float64(len(items) - i)
	}
	return scores
}

func countMap(counts *reshape.Node) map[string]int64 {
	out := make(map[string]int64, counts.Len())
	for key, leaf := range counts.Children() {
		out[key] = leaf.Value()
	}
	return out
}
