// Package source reads delivery data out of the operational PostgreSQL
// database and computes the dimensional keys the warehouse expects.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"fleetlogix/internal/pipeline"
	apperrors "fleetlogix/pkg/errors"
	"fleetlogix/pkg/models"
)

// DateCount is one day of source data with its record count.
type DateCount struct {
	Date    time.Time
	Records int64
}

// Extractor pulls delivery batches from the operational database.
type Extractor struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// Connect opens the source connection and verifies it with a ping.
func Connect(ctx context.Context, cfg models.Source, log logrus.FieldLogger) (*Extractor, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.ConnectionError("Failed to open source connection", err).
			WithContext("host", cfg.Host)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.ConnectionError("Failed to connect to source database", err).
			WithContext("host", cfg.Host).
			WithContext("database", cfg.Database).
			AsRecoverable()
	}

	return &Extractor{
		db:  db,
		log: log.WithField("component", "source"),
	}, nil
}

func (e *Extractor) Close() error {
	return e.db.Close()
}

// AvailableDates lists the most recent days that have deliveries joined to
// trips, newest first.
func (e *Extractor) AvailableDates(ctx context.Context, limit int) ([]DateCount, error) {
	if limit < 1 {
		limit = 10
	}
	query := `
		SELECT DATE(t.departure_datetime) AS date, COUNT(*) AS records
		FROM trips t
		INNER JOIN deliveries d ON t.trip_id = d.trip_id
		WHERE t.departure_datetime IS NOT NULL
		  AND d.delivery_status IS NOT NULL
		GROUP BY DATE(t.departure_datetime)
		ORDER BY date DESC
		LIMIT $1`

	rows, err := e.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExtractionFailed,
			"Failed to list available dates")
	}
	defer rows.Close()

	var dates []DateCount
	for rows.Next() {
		var dc DateCount
		if err := rows.Scan(&dc.Date, &dc.Records); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeResultParsing,
				"Failed to scan date row")
		}
		dates = append(dates, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExtractionFailed,
			"Failed reading available dates")
	}
	if len(dates) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeNoSourceData,
			"no dated delivery data found in source").
			WithSuggestions("Check that the operational database has recent trips")
	}
	return dates, nil
}

// ExtractByDate pulls every delivery of one departure date with its trip,
// vehicle, driver, route and customer context joined in.
func (e *Extractor) ExtractByDate(ctx context.Context, date time.Time, limit int) (pipeline.Batch, error) {
	query := `
		SELECT
			d.delivery_id,
			d.trip_id,
			d.tracking_number,
			d.customer_id,
			t.vehicle_id,
			t.driver_id,
			t.route_id,
			d.scheduled_datetime,
			d.delivered_datetime,
			d.package_weight_kg,
			d.distance_km,
			d.fuel_consumed_liters,
			d.fuel_efficiency_km_per_liter,
			d.delay_minutes,
			d.deliveries_per_hour,
			d.revenue_per_delivery,
			d.cost_per_delivery,
			d.is_damaged,
			d.recipient_signature,
			d.delivery_status,
			t.status
		FROM deliveries d
		INNER JOIN trips t ON d.trip_id = t.trip_id
		INNER JOIN vehicles v ON t.vehicle_id = v.vehicle_id
		INNER JOIN drivers dr ON t.driver_id = dr.driver_id
		INNER JOIN routes r ON t.route_id = r.route_id
		INNER JOIN customers c ON d.customer_id = c.customer_id
		WHERE DATE(t.departure_datetime) = $1
		  AND t.departure_datetime IS NOT NULL
		  AND d.delivery_status IS NOT NULL
		ORDER BY t.departure_datetime DESC
		LIMIT $2`

	rows, err := e.db.QueryContext(ctx, query, date.Format("2006-01-02"), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExtractionFailed,
			"Delivery extraction query failed").
			WithContext("date", date.Format("2006-01-02"))
	}
	defer rows.Close()

	var batch pipeline.Batch
	for rows.Next() {
		var r pipeline.DeliveryRecord
		var scheduled sql.NullTime
		if err := rows.Scan(
			&r.DeliveryID,
			&r.TripID,
			&r.TrackingNumber,
			&r.CustomerID,
			&r.VehicleID,
			&r.DriverID,
			&r.RouteID,
			&scheduled,
			&r.DeliveredAt,
			&r.PackageWeightKg,
			&r.DistanceKm,
			&r.FuelConsumedLiters,
			&r.FuelEfficiencyKmPerLiter,
			&r.DelayMinutes,
			&r.DeliveriesPerHour,
			&r.RevenuePerDelivery,
			&r.CostPerDelivery,
			&r.IsDamaged,
			&r.HasSignature,
			&r.DeliveryStatus,
			&r.TripStatus,
		); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeResultParsing,
				"Failed to scan delivery row")
		}
		if scheduled.Valid {
			r.ScheduledAt = scheduled.Time
		}

		r.DateKey = dateKey(scheduled)
		r.ScheduledTimeKey = timeKey(scheduled)
		r.DeliveredTimeKey = timeKey(r.DeliveredAt)

		batch = append(batch, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExtractionFailed,
			"Failed reading delivery rows")
	}

	e.log.WithFields(logrus.Fields{
		"date": date.Format("2006-01-02"),
		"rows": len(batch),
	}).Info("Deliveries extracted")
	return batch, nil
}

// ExtractRecent combines the last n available days into one batch.
func (e *Extractor) ExtractRecent(ctx context.Context, days, limitPerDay int) (pipeline.Batch, error) {
	dates, err := e.AvailableDates(ctx, days)
	if err != nil {
		return nil, err
	}

	var combined pipeline.Batch
	for _, dc := range dates {
		batch, err := e.ExtractByDate(ctx, dc.Date, limitPerDay)
		if err != nil {
			return nil, err
		}
		combined = append(combined, batch...)
	}
	if len(combined) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeNoSourceData,
			"extraction returned no rows for any recent date")
	}
	return combined, nil
}

// dateKey encodes a timestamp as yyyymmdd, or 0 when the timestamp is null.
func dateKey(t sql.NullTime) int64 {
	if !t.Valid {
		return 0
	}
	y, m, d := t.Time.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}

// timeKey encodes the clock part as hhmm, or 0 when the timestamp is null.
func timeKey(t sql.NullTime) int64 {
	if !t.Valid {
		return 0
	}
	return int64(t.Time.Hour())*100 + int64(t.Time.Minute())
}
