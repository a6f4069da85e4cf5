package verify

import (
	"context"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetlogix/internal/warehouse"
)

func newMockChecker(t *testing.T) (*Checker, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewChecker(db, warehouse.FactDeliveriesSchema("FACT_DELIVERIES"), log), mock
}

func expectChecks(mock sqlmock.Sqlmock, rows, distinct, missing, minKey, maxKey int64) {
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(rows))
	mock.ExpectQuery("COUNT.DISTINCT").
		WillReturnRows(sqlmock.NewRows([]string{"total", "distinct"}).AddRow(rows, distinct))
	mock.ExpectQuery("IS NULL").
		WillReturnRows(sqlmock.NewRows([]string{"missing"}).AddRow(missing))
	mock.ExpectQuery("SELECT MIN").
		WillReturnRows(sqlmock.NewRows([]string{"min", "max"}).AddRow(minKey, maxKey))
}

func TestRunAllChecksPass(t *testing.T) {
	c, mock := newMockChecker(t)
	expectChecks(mock, 5000, 5000, 0, 20250301, 20250312)

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.True(t, r.Passed, r.Name)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDetectsDuplicateKeys(t *testing.T) {
	c, mock := newMockChecker(t)
	expectChecks(mock, 5000, 4990, 0, 20250301, 20250312)

	results, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.Contains(t, results[1].Detail, "4990 distinct")
}

func TestRunDetectsMissingKeys(t *testing.T) {
	c, mock := newMockChecker(t)
	expectChecks(mock, 5000, 5000, 12, 20250301, 20250312)

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, results[2].Passed)
}

func TestRunDetectsImplausibleDateKeys(t *testing.T) {
	c, mock := newMockChecker(t)
	expectChecks(mock, 5000, 5000, 0, 19000101, 20250312)

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, results[3].Passed)
}

func TestRunEmptyTableFailsRowCount(t *testing.T) {
	c, mock := newMockChecker(t)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("COUNT.DISTINCT").
		WillReturnRows(sqlmock.NewRows([]string{"total", "distinct"}).AddRow(0, 0))
	mock.ExpectQuery("IS NULL").
		WillReturnRows(sqlmock.NewRows([]string{"missing"}).AddRow(0))
	mock.ExpectQuery("SELECT MIN").
		WillReturnRows(sqlmock.NewRows([]string{"min", "max"}).AddRow(nil, nil))

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, results[0].Passed)
	assert.False(t, results[3].Passed)
	assert.Equal(t, "no dated rows", results[3].Detail)
}
