package neo4j

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/pkg/errors"
)

type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) VerifyConnectivity(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *MockDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) internalSession {
	return m.Called(ctx, config).Get(0).(internalSession)
}
func (m *MockDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockSession runs work against its transaction.
type MockSession struct {
	mock.Mock
	tx Transaction
}

func (m *MockSession) ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	return work(m.tx)
}
func (m *MockSession) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockTransaction struct {
	mock.Mock
}

func (m *MockTransaction) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	args := m.Called(ctx, cypher, params)
	if r := args.Get(0); r != nil {
		return r.(Result), args.Error(1)
	}
	return nil, args.Error(1)
}

// sliceResult replays fixed records.
type sliceResult struct {
	records []*neo4j.Record
	pos     int
	err     error
}

func newResult(keys []string, rows ...[]any) *sliceResult {
	res := &sliceResult{pos: -1}
	for _, row := range rows {
		res.records = append(res.records, &neo4j.Record{Keys: keys, Values: row})
	}
	return res
}

func (r *sliceResult) Next(context.Context) bool {
	if r.pos+1 >= len(r.records) {
		return false
	}
	r.pos++
	return true
}
func (r *sliceResult) Record() *neo4j.Record { return r.records[r.pos] }
func (r *sliceResult) Err() error            { return r.err }

func newMockedDriver(tx Transaction) (*Driver, *MockDriver) {
	md := new(MockDriver)
	session := &MockSession{tx: tx}
	session.On("Close", mock.Anything).Return(nil)
	md.On("NewSession", mock.Anything, mock.Anything).Return(session)
	return &Driver{driver: md, cfg: Config{Database: "crn"}, logger: logging.NewNopLogger()}, md
}

func TestDriver_HealthCheck(t *testing.T) {
	tx := new(MockTransaction)
	tx.On("Run", mock.Anything, "RETURN 1 AS health", mock.Anything).
		Return(newResult([]string{"health"}, []any{int64(1)}), nil)
	d, md := newMockedDriver(tx)
	md.On("VerifyConnectivity", mock.Anything).Return(nil)

	require.NoError(t, d.HealthCheck(context.Background()))
	md.AssertCalled(t, "NewSession", mock.Anything, neo4j.SessionConfig{DatabaseName: "crn", AccessMode: neo4j.AccessModeRead})
}

func TestDriver_HealthCheckUnreachable(t *testing.T) {
	md := new(MockDriver)
	md.On("VerifyConnectivity", mock.Anything).Return(stderrors.New("connection refused"))
	d := &Driver{driver: md, logger: logging.NewNopLogger()}

	err := d.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSourceUnavailable))
}

func TestDriver_ExecuteReadWrapsErrors(t *testing.T) {
	tx := new(MockTransaction)
	tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil, stderrors.New("syntax error"))
	d, _ := newMockedDriver(tx)

	_, err := d.ExecuteRead(context.Background(), func(tx Transaction) (any, error) {
		return tx.Run(context.Background(), "MATCH", nil)
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestDriver_CloseOnce(t *testing.T) {
	md := new(MockDriver)
	md.On("Close", mock.Anything).Return(nil).Once()
	d := &Driver{driver: md, logger: logging.NewNopLogger()}

	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))
	md.AssertNumberOfCalls(t, "Close", 1)
}

func TestExtractSingleRecord_Empty(t *testing.T) {
	_, err := ExtractSingleRecord(context.Background(), newResult(nil), func(r *neo4j.Record) (int, error) { return 1, nil })
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCollectRecords_PropagatesResultError(t *testing.T) {
	res := newResult([]string{"x"})
	res.err = stderrors.New("stream broken")
	_, err := CollectRecords(context.Background(), res, func(r *neo4j.Record) (int, error) { return 0, nil })
	assert.EqualError(t, err, "stream broken")
}
