package mockexecutor

import (
	"context"

	"github.com/stretchr/testify/mock"

	"metrics-query-service/internal/model"
	"metrics-query-service/internal/repository"
	"metrics-query-service/internal/reshape"
)

type Executor struct {
	mock.Mock
}

// Interface compliance check
var _ repository.QueryExecutor = &Executor{}

func (m *Executor) Execute(ctx context.Context, req *model.QueryRequest) (*reshape.Node, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*reshape.Node), args.Error(1)
	}
	return nil, args.Error(1)
}
