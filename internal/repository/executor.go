// Package repository executes assembled aggregation requests against
// the analytics store and returns the response as a nested result tree.
package repository

import (
	"context"

	"metrics-query-service/internal/model"
	"metrics-query-service/internal/reshape"
)

// QueryExecutor runs exactly one backend aggregation per call. The
// returned tree is nested along the request's group-by order down to
// the aggregate leaf. A zero-row response is an empty tree, not an
// error; backend errors propagate verbatim.
type QueryExecutor interface {
	Execute(ctx context.Context, req *model.QueryRequest) (*reshape.Node, error)
}
