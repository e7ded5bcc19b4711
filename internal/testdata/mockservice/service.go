package mockservice

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"metrics-query-service/internal/model"
	"metrics-query-service/internal/service"
)

type Service struct {
	mock.Mock
}

// Interface compliance check
var _ service.QueryService = &Service{}

func (m *Service) GetRange(ctx context.Context, mdl model.Model, keys any, start, end time.Time, opts service.QueryOptions) (map[string][]model.Point, error) {
	args := m.Called(ctx, mdl, keys, start, end, opts)
	return args.Get(0).(map[string][]model.Point), args.Error(1)
}

func (m *Service) GetDistinctCountsSeries(ctx context.Context, mdl model.Model, keys any, start, end time.Time, opts service.QueryOptions) (map[string][]model.Point, error) {
	args := m.Called(ctx, mdl, keys, start, end, opts)
	return args.Get(0).(map[string][]model.Point), args.Error(1)
}

func (m *Service) GetDistinctCountsTotals(ctx context.Context, mdl model.Model, keys any, start, end time.Time, opts service.QueryOptions) (map[string]int64, error) {
	args := m.Called(ctx, mdl, keys, start, end, opts)
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *Service) GetDistinctCountsUnion(ctx context.Context, mdl model.Model, keys any, start, end time.Time, opts service.QueryOptions) (int64, error) {
	args := m.Called(ctx, mdl, keys, start, end, opts)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Service) GetMostFrequent(ctx context.Context, mdl model.Model, keys any, start, end time.Time, opts service.QueryOptions) (map[string][]model.ScoredItem, error) {
	args := m.Called(ctx, mdl, keys, start, end, opts)
	return args.Get(0).(map[string][]model.ScoredItem), args.Error(1)
}

func (m *Service) GetMostFrequentSeries(ctx context.Context, mdl model.Model, keys any, start, end time.Time, opts service.QueryOptions) (map[string][]model.ScoredBucket, error) {
	args := m.Called(ctx, mdl, keys, start, end, opts)
	return args.Get(0).(map[string][]model.ScoredBucket), args.Error(1)
}

func (m *Service) GetFrequencySeries(ctx context.Context, mdl model.Model, keys any, start, end time.Time, opts service.QueryOptions) (map[string][]model.CountBucket, error) {
	args := m.Called(ctx, mdl, keys, start, end, opts)
	return args.Get(0).(map[string][]model.CountBucket), args.Error(1)
}

func (m *Service) GetFrequencyTotals(ctx context.Context, mdl model.Model, keys any, start, end time.Time, opts service.QueryOptions) (map[string]map[string]int64, error) {
	args := m.Called(ctx, mdl, keys, start, end, opts)
	return args.Get(0).(map[string]map[string]int64), args.Error(1)
}
