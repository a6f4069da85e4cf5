package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fleetlogix/pkg/errors"
)

func newMockExtractor(t *testing.T) (*Extractor, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Extractor{db: db, log: log.WithField("component", "source")}, mock
}

var deliveryColumns = []string{
	"delivery_id", "trip_id", "tracking_number", "customer_id",
	"vehicle_id", "driver_id", "route_id",
	"scheduled_datetime", "delivered_datetime",
	"package_weight_kg", "distance_km", "fuel_consumed_liters",
	"fuel_efficiency_km_per_liter", "delay_minutes", "deliveries_per_hour",
	"revenue_per_delivery", "cost_per_delivery",
	"is_damaged", "recipient_signature", "delivery_status", "status",
}

func TestAvailableDates(t *testing.T) {
	e, mock := newMockExtractor(t)

	mock.ExpectQuery("SELECT DATE").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"date", "records"}).
			AddRow(time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), 820).
			AddRow(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), 765))

	dates, err := e.AvailableDates(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, int64(820), dates[0].Records)
	assert.True(t, dates[0].Date.After(dates[1].Date))
}

func TestAvailableDatesEmpty(t *testing.T) {
	e, mock := newMockExtractor(t)

	mock.ExpectQuery("SELECT DATE").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"date", "records"}))

	_, err := e.AvailableDates(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNoSourceData, apperrors.GetErrorCode(err))
}

func TestExtractByDateComputesKeys(t *testing.T) {
	e, mock := newMockExtractor(t)

	scheduled := time.Date(2025, 3, 12, 9, 15, 0, 0, time.UTC)
	delivered := time.Date(2025, 3, 12, 11, 42, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT").
		WithArgs("2025-03-12", 100).
		WillReturnRows(sqlmock.NewRows(deliveryColumns).
			AddRow(
				int64(1), int64(501), "FLX-2025-0001", int64(9),
				int64(42), int64(7), int64(3),
				scheduled, delivered,
				250.0, 120.0, 15.0,
				8.0, -5.0, 2.4,
				45.50, 20.25,
				false, true, "delivered", "completed",
			).
			AddRow(
				int64(2), int64(502), "FLX-2025-0002", int64(9),
				int64(42), int64(7), int64(3),
				scheduled, nil,
				120.0, 60.0, 8.0,
				7.5, nil, nil,
				30.00, 12.00,
				false, false, "in_progress", "in_progress",
			))

	batch, err := e.ExtractByDate(context.Background(), scheduled, 100)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	first := batch[0]
	assert.Equal(t, int64(20250312), first.DateKey)
	assert.Equal(t, int64(915), first.ScheduledTimeKey)
	assert.Equal(t, int64(1142), first.DeliveredTimeKey)
	assert.Equal(t, "FLX-2025-0001", first.TrackingNumber)
	assert.True(t, first.VehicleID.Valid)
	assert.True(t, first.DelayMinutes.Valid)

	second := batch[1]
	assert.Equal(t, int64(0), second.DeliveredTimeKey) // null timestamp
	assert.False(t, second.DeliveredAt.Valid)
	assert.False(t, second.DelayMinutes.Valid)
}

func TestExtractByDateQueryError(t *testing.T) {
	e, mock := newMockExtractor(t)

	mock.ExpectQuery("SELECT").
		WillReturnError(fmt.Errorf("relation deliveries does not exist"))

	_, err := e.ExtractByDate(context.Background(), time.Now(), 100)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeExtractionFailed, apperrors.GetErrorCode(err))
}

func TestDateAndTimeKeys(t *testing.T) {
	ts := time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, int64(20241231), dateKey(sql.NullTime{Time: ts, Valid: true}))
	assert.Equal(t, int64(2359), timeKey(sql.NullTime{Time: ts, Valid: true}))
	assert.Equal(t, int64(0), dateKey(sql.NullTime{}))
	assert.Equal(t, int64(0), timeKey(sql.NullTime{}))

	midnight := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(20250101), dateKey(sql.NullTime{Time: midnight, Valid: true}))
	// Midnight encodes to 0, indistinguishable from a null timestamp.
	assert.Equal(t, int64(0), timeKey(sql.NullTime{Time: midnight, Valid: true}))
}
