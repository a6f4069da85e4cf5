// Package verify runs integrity checks against the loaded fact table.
package verify

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"fleetlogix/internal/warehouse"
	apperrors "fleetlogix/pkg/errors"
)

// Plausible bounds for the encoded date key.
const (
	minPlausibleDateKey = 20000101
	maxPlausibleDateKey = 20991231
)

// CheckResult is the outcome of one integrity check.
type CheckResult struct {
	Name   string
	Passed bool
	Detail string
}

// Checker inspects the fact table after a load. Checks report, they never
// mutate.
type Checker struct {
	db     *sql.DB
	schema warehouse.TableSchema
	log    logrus.FieldLogger
}

func NewChecker(db *sql.DB, schema warehouse.TableSchema, log logrus.FieldLogger) *Checker {
	return &Checker{
		db:     db,
		schema: schema,
		log:    log.WithField("component", "verify"),
	}
}

// Run executes every integrity check in order and reports each outcome.
// A failing check is a result, not an error; errors mean the check itself
// could not run.
func (c *Checker) Run(ctx context.Context) ([]CheckResult, error) {
	checks := []func(context.Context) (CheckResult, error){
		c.checkRowCount,
		c.checkUniqueKeys,
		c.checkCriticalKeys,
		c.checkDateKeyRange,
	}

	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		result, err := check(ctx)
		if err != nil {
			return results, err
		}
		if !result.Passed {
			c.log.WithFields(logrus.Fields{
				"check":  result.Name,
				"detail": result.Detail,
			}).Warn("Integrity check failed")
		}
		results = append(results, result)
	}
	return results, nil
}

func (c *Checker) checkRowCount(ctx context.Context) (CheckResult, error) {
	result := CheckResult{Name: "table has rows"}

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, c.schema.Table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return result, apperrors.SQLError("Row count check failed", query, err)
	}

	result.Passed = count > 0
	result.Detail = fmt.Sprintf("%d rows", count)
	return result, nil
}

func (c *Checker) checkUniqueKeys(ctx context.Context) (CheckResult, error) {
	result := CheckResult{Name: "delivery keys are unique"}

	var total, distinct int64
	query := fmt.Sprintf(`SELECT COUNT(*), COUNT(DISTINCT "%s") FROM "%s"`,
		c.schema.KeyColumn, c.schema.Table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&total, &distinct); err != nil {
		return result, apperrors.SQLError("Unique key check failed", query, err)
	}

	result.Passed = total == distinct
	result.Detail = fmt.Sprintf("%d rows, %d distinct keys", total, distinct)
	return result, nil
}

func (c *Checker) checkCriticalKeys(ctx context.Context) (CheckResult, error) {
	result := CheckResult{Name: "critical dimension keys populated"}

	var missing int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s" `+
		`WHERE "DATE_KEY" = 0 OR "VEHICLE_ID" IS NULL OR "DRIVER_ID" IS NULL`,
		c.schema.Table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&missing); err != nil {
		return result, apperrors.SQLError("Critical key check failed", query, err)
	}

	result.Passed = missing == 0
	result.Detail = fmt.Sprintf("%d rows with missing keys", missing)
	return result, nil
}

func (c *Checker) checkDateKeyRange(ctx context.Context) (CheckResult, error) {
	result := CheckResult{Name: "date keys within plausible range"}

	var min, max sql.NullInt64
	query := fmt.Sprintf(`SELECT MIN("DATE_KEY"), MAX("DATE_KEY") FROM "%s" WHERE "DATE_KEY" <> 0`,
		c.schema.Table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&min, &max); err != nil {
		return result, apperrors.SQLError("Date key range check failed", query, err)
	}

	if !min.Valid {
		// Every date key is zero, already reported by the critical key check.
		result.Passed = false
		result.Detail = "no dated rows"
		return result, nil
	}

	result.Passed = min.Int64 >= minPlausibleDateKey && max.Int64 <= maxPlausibleDateKey
	result.Detail = fmt.Sprintf("range %d to %d", min.Int64, max.Int64)
	return result, nil
}
