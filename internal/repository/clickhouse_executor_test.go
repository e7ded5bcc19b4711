package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"metrics-query-service/internal/logger"
	"metrics-query-service/internal/model"
	"metrics-query-service/internal/testdata/mockclickhouseconnection"
	"metrics-query-service/internal/testdata/mockclickhouserows"
)

func seriesRequest() *model.QueryRequest {
	return &model.QueryRequest{
		Dataset: model.DatasetEvents,
		Start:   time.Unix(3600, 0).UTC(),
		End:     time.Unix(3*3600, 0).UTC(),
		GroupBy: []string{"project_id", "time"},
		Conditions: []model.Condition{
			{Column: "type", Op: "!=", Value: "transaction"},
		},
		FilterKeys: map[string][]string{"project_id": {"1", "2"}},
		Aggregations: []model.Aggregation{
			{Function: "count()", Alias: "aggregate"},
		},
		Rollup:   3600,
		Limit:    4,
		OrderBy:  []string{"-time", "project_id"},
		Referrer: "tsdb-modelid:1",
		UseCache: true,
	}
}

func TestBuildSQL_SeriesQuery(t *testing.T) {
	got, err := buildSQL(seriesRequest())

	require.NoError(t, err)
	assert.Equal(t,
		"SELECT toString(project_id) AS project_id, "+
			"toString(intDiv(toUnixTimestamp(timestamp), 3600) * 3600) AS time, "+
			"toInt64(count()) AS aggregate "+
			"FROM events "+
			"WHERE timestamp >= toDateTime('1970-01-01 01:00:00', 'UTC') "+
			"AND timestamp < toDateTime('1970-01-01 03:00:00', 'UTC') "+
			"AND toString(project_id) IN ('1', '2') "+
			"AND type != 'transaction' "+
			"GROUP BY project_id, time "+
			"ORDER BY time DESC, project_id "+
			"LIMIT 4 "+
			"SETTINGS log_comment = 'tsdb-modelid:1', use_query_cache = 1",
		got)
}

func TestBuildSQL_TopK(t *testing.T) {
	req := seriesRequest()
	req.GroupBy = []string{"group_id"}
	req.OrderBy = nil
	req.FilterKeys = map[string][]string{"group_id": {"7"}}
	req.Aggregations = []model.Aggregation{
		{Function: "topK(10)", Column: "release", Alias: "aggregate"},
	}

	got, err := buildSQL(req)

	require.NoError(t, err)
	assert.Contains(t, got, "arrayMap(v -> toString(v), topK(10)(release)) AS aggregate")
	assert.Contains(t, got, "toString(group_id) IN ('7')")
}

func TestBuildSQL_ArrayJoinProjection(t *testing.T) {
	req := seriesRequest()
	req.Dataset = model.DatasetTransactions
	req.GroupBy = []string{"group_id", "time"}
	req.OrderBy = nil
	req.FilterKeys = map[string][]string{"group_id": {"7"}}
	req.Conditions = nil
	req.SelectedColumns = []model.ColumnExpr{
		{Function: "arrayJoin", Column: "group_ids", Alias: "group_id"},
	}

	got, err := buildSQL(req)

	require.NoError(t, err)
	assert.Contains(t, got, "FROM transactions ARRAY JOIN group_ids AS group_id WHERE")
}

func TestBuildSQL_SyntheticTimeAlias(t *testing.T) {
	req := seriesRequest()
	req.Dataset = model.DatasetSearchIssues
	req.GroupBy = []string{"group_id", "time_t"}
	req.OrderBy = []string{"-time_t", "group_id"}
	req.Aggregations = []model.Aggregation{
		{Function: "count()", Alias: "aggregate"},
		{Expression: "toUnixTimestamp(toStartOfHour(timestamp))", Alias: "time_t"},
	}

	got, err := buildSQL(req)

	require.NoError(t, err)
	assert.Contains(t, got, "toString(toUnixTimestamp(toStartOfHour(timestamp))) AS time_t")
	assert.Contains(t, got, "ORDER BY time_t DESC, group_id")
}

func TestBuildSQL_ConditionRendering(t *testing.T) {
	req := seriesRequest()
	req.Conditions = []model.Condition{
		{Column: "outcome", Op: "IN", Value: []model.Outcome{model.OutcomeAccepted, model.OutcomeAbuse}},
		{Column: "category", Op: "=", Value: model.CategoryError},
		{Column: "reason", Op: "=", Value: "web-crawlers"},
		{Column: "occurrence_type_id", Op: "IN", Value: []int64{2001, 2002}},
	}

	got, err := buildSQL(req)

	require.NoError(t, err)
	assert.Contains(t, got, "outcome IN (0, 4)")
	assert.Contains(t, got, "category = 1")
	assert.Contains(t, got, "reason = 'web-crawlers'")
	assert.Contains(t, got, "occurrence_type_id IN (2001, 2002)")
}

func TestBuildSQL_QuotesEscaped(t *testing.T) {
	req := seriesRequest()
	req.FilterKeys = map[string][]string{"release": {`v'1\0`}}

	got, err := buildSQL(req)

	require.NoError(t, err)
	assert.Contains(t, got, `toString(release) IN ('v\'1\\0')`)
}

func TestBuildSQL_Errors(t *testing.T) {
	noRollup := seriesRequest()
	noRollup.Rollup = 0
	_, err := buildSQL(noRollup)
	assert.ErrorContains(t, err, "rollup")

	badProjection := seriesRequest()
	badProjection.SelectedColumns = []model.ColumnExpr{{Function: "lower", Column: "release", Alias: "r"}}
	_, err = buildSQL(badProjection)
	assert.ErrorContains(t, err, "unsupported projection function")

	badOp := seriesRequest()
	badOp.Conditions = []model.Condition{{Column: "type", Op: "LIKE", Value: "x"}}
	_, err = buildSQL(badOp)
	assert.ErrorContains(t, err, "unsupported condition operator")

	noAggregate := seriesRequest()
	noAggregate.Aggregations = []model.Aggregation{{Expression: "1", Alias: "time_t"}}
	_, err = buildSQL(noAggregate)
	assert.ErrorContains(t, err, "no aggregate function")
}

type ClickHouseExecutorTestSuite struct {
	suite.Suite
	conn     *mockclickhouseconnection.Connection
	rows     *mockclickhouserows.Rows
	executor QueryExecutor
}

func (s *ClickHouseExecutorTestSuite) SetupTest() {
	s.conn = new(mockclickhouseconnection.Connection)
	s.rows = new(mockclickhouserows.Rows)
	s.executor = NewClickHouseExecutor(s.conn, logger.NewNop())
}

func TestClickHouseExecutorTestSuite(t *testing.T) {
	suite.Run(t, new(ClickHouseExecutorTestSuite))
}

// stubRows arranges the mock cursor to yield the given scalar rows, each
// a group value list plus the aggregate value.
func (s *ClickHouseExecutorTestSuite) stubRows(rows [][]any) {
	for range rows {
		s.rows.On("Next").Return(true).Once()
	}
	s.rows.On("Next").Return(false).Once()

	i := 0
	s.rows.On("Scan", mock.Anything).Run(func(args mock.Arguments) {
		dest := args.Get(0).([]any)
		row := rows[i]
		i++
		for j, v := range row {
			switch d := dest[j].(type) {
			case *string:
				*d = v.(string)
			case *int64:
				*d = v.(int64)
			case *[]string:
				*d = v.([]string)
			}
		}
	}).Return(nil)
	s.rows.On("Err").Return(nil)
	s.rows.On("Close").Return(nil)
}

func (s *ClickHouseExecutorTestSuite) TestExecuteBuildsTree() {
	s.stubRows([][]any{
		{"1", "3600", int64(5)},
		{"1", "7200", int64(2)},
		{"2", "3600", int64(9)},
	})
	s.conn.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(s.rows, nil)

	result, err := s.executor.Execute(context.Background(), seriesRequest())

	s.NoError(err)
	s.Equal(int64(5), result.Get("1").Get("3600").Value())
	s.Equal(int64(2), result.Get("1").Get("7200").Value())
	s.Equal(int64(9), result.Get("2").Get("3600").Value())
}

func (s *ClickHouseExecutorTestSuite) TestExecuteWrapsLeafForProjections() {
	req := seriesRequest()
	req.SelectedColumns = []model.ColumnExpr{
		{Function: "arrayJoin", Column: "group_ids", Alias: "group_id"},
	}
	s.stubRows([][]any{{"1", "3600", int64(5)}})
	s.conn.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(s.rows, nil)

	result, err := s.executor.Execute(context.Background(), req)

	s.NoError(err)
	s.Equal(int64(5), result.Get("1").Get("3600").Get("aggregate").Value())
}

func (s *ClickHouseExecutorTestSuite) TestExecuteItemLeaves() {
	req := seriesRequest()
	req.GroupBy = []string{"group_id"}
	req.OrderBy = nil
	req.Aggregations = []model.Aggregation{
		{Function: "topK(10)", Column: "release", Alias: "aggregate"},
	}
	s.stubRows([][]any{{"7", []string{"b", "a"}}})
	s.conn.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(s.rows, nil)

	result, err := s.executor.Execute(context.Background(), req)

	s.NoError(err)
	s.Equal([]string{"b", "a"}, result.Get("7").Items())
}

func (s *ClickHouseExecutorTestSuite) TestExecuteScalarResult() {
	req := seriesRequest()
	req.GroupBy = nil
	req.OrderBy = nil
	s.stubRows([][]any{{int64(13)}})
	s.conn.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(s.rows, nil)

	result, err := s.executor.Execute(context.Background(), req)

	s.NoError(err)
	s.False(result.IsBranch())
	s.Equal(int64(13), result.Value())
}

func (s *ClickHouseExecutorTestSuite) TestExecuteScalarDefaultsToZero() {
	req := seriesRequest()
	req.GroupBy = nil
	req.OrderBy = nil
	s.stubRows(nil)
	s.conn.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(s.rows, nil)

	result, err := s.executor.Execute(context.Background(), req)

	s.NoError(err)
	s.Equal(int64(0), result.Value())
}

func (s *ClickHouseExecutorTestSuite) TestExecuteQueryError() {
	s.conn.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := s.executor.Execute(context.Background(), seriesRequest())

	s.ErrorContains(err, "connection refused")
}

func (s *ClickHouseExecutorTestSuite) TestExecuteRowsError() {
	s.rows.On("Next").Return(false).Once()
	s.rows.On("Err").Return(errors.New("read timeout"))
	s.rows.On("Close").Return(nil)
	s.conn.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(s.rows, nil)

	_, err := s.executor.Execute(context.Background(), seriesRequest())

	s.ErrorContains(err, "read timeout")
}

func (s *ClickHouseExecutorTestSuite) TestExecuteInvalidRequest() {
	req := seriesRequest()
	req.Rollup = 0

	_, err := s.executor.Execute(context.Background(), req)

	s.Error(err)
	s.conn.AssertNotCalled(s.T(), "Query", mock.Anything, mock.Anything, mock.Anything)
}
