package mockclickhouserows

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

type Rows struct {
	mock.Mock
}

var _ driver.Rows = &Rows{}

func (m *Rows) Next() bool {
	return m.Called().Bool(0)
}

// Scan passes the destination slice through so tests can populate it
// from a Run callback.
func (m *Rows) Scan(dest ...any) error {
	return m.Called(dest).Error(0)
}

func (m *Rows) ScanStruct(dest any) error {
	return m.Called(dest).Error(0)
}

func (m *Rows) ColumnTypes() []driver.ColumnType {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]driver.ColumnType)
	}
	return nil
}

func (m *Rows) Totals(dest ...any) error {
	return m.Called(dest).Error(0)
}

func (m *Rows) Columns() []string {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]string)
	}
	return nil
}

func (m *Rows) Close() error {
	return m.Called().Error(0)
}

func (m *Rows) Err() error {
	return m.Called().Error(0)
}
