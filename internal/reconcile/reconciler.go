package reconcile

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"fleetlogix/internal/warehouse"
	apperrors "fleetlogix/pkg/errors"
)

// Strategy names which write path landed the batch.
type Strategy string

const (
	StrategyMerge        Strategy = "merge"
	StrategyDeleteInsert Strategy = "delete+insert"
)

// defaultDeleteBatch bounds how many keys one fallback DELETE carries.
const defaultDeleteBatch = 500

// Summary reports the outcome of one reconciliation.
type Summary struct {
	Success      bool
	NewCount     int
	UpdatedCount int
	Strategy     Strategy
}

// Analysis is the pre-write comparison between the batch and the target
// table, computed without modifying anything.
type Analysis struct {
	TableRows    int64
	BatchRows    int
	NewKeys      int
	ExistingKeys int
}

// Reconciler lands projected batches in the warehouse. The primary path
// stages the batch and merges it; when the merge path fails the whole
// batch is retried once as delete-then-insert. Both paths leave the target
// in the same end state, so a rerun of the same batch changes nothing.
type Reconciler struct {
	store       warehouse.Store
	deleteBatch int
	log         logrus.FieldLogger
}

// New builds a reconciler. deleteBatch bounds the keys per fallback DELETE
// statement; values below 1 use the default.
func New(store warehouse.Store, deleteBatch int, log logrus.FieldLogger) *Reconciler {
	if deleteBatch < 1 {
		deleteBatch = defaultDeleteBatch
	}
	return &Reconciler{
		store:       store,
		deleteBatch: deleteBatch,
		log:         log.WithField("component", "reconcile"),
	}
}

// Analyze compares the batch against the current table content without
// writing. It ensures the target table exists so the comparison works on
// first runs too.
func (r *Reconciler) Analyze(ctx context.Context, schema warehouse.TableSchema, rows []warehouse.Row) (Analysis, error) {
	var a Analysis
	if err := r.store.EnsureTable(ctx, schema); err != nil {
		return a, err
	}

	count, err := r.store.CountRows(ctx, schema.Table)
	if err != nil {
		return a, err
	}
	a.TableRows = count
	a.BatchRows = len(rows)

	existing, err := r.store.FetchExistingKeys(ctx, schema)
	if err != nil {
		return a, err
	}
	newKeys, updateKeys, err := partitionKeys(schema, rows, existing)
	if err != nil {
		return a, err
	}
	a.NewKeys = len(newKeys)
	a.ExistingKeys = len(updateKeys)
	return a, nil
}

// Reconcile upserts the batch into the target table. An empty batch is an
// error; an empty load is more likely a broken extraction than a quiet day.
func (r *Reconciler) Reconcile(ctx context.Context, schema warehouse.TableSchema, rows []warehouse.Row) (Summary, error) {
	var summary Summary
	if len(rows) == 0 {
		return summary, apperrors.New(apperrors.ErrCodeEmptyBatch,
			"refusing to reconcile an empty batch").
			WithContext("table", schema.Table)
	}

	if err := r.store.EnsureTable(ctx, schema); err != nil {
		return summary, err
	}

	existing, err := r.store.FetchExistingKeys(ctx, schema)
	if err != nil {
		return summary, err
	}
	newKeys, updateKeys, err := partitionKeys(schema, rows, existing)
	if err != nil {
		return summary, err
	}
	summary.NewCount = len(newKeys)
	summary.UpdatedCount = len(updateKeys)

	if err := r.merge(ctx, schema, rows); err != nil {
		r.log.WithError(err).Warn("Merge path failed, retrying as delete and insert")

		if fbErr := r.deleteInsert(ctx, schema, rows, updateKeys); fbErr != nil {
			return summary, apperrors.Wrap(fbErr, apperrors.ErrCodeFallbackFailed,
				"Both reconcile strategies failed").
				WithContext("table", schema.Table).
				WithContext("merge_error", err.Error())
		}
		summary.Strategy = StrategyDeleteInsert
		summary.Success = true
	} else {
		summary.Strategy = StrategyMerge
		summary.Success = true
	}

	r.log.WithFields(logrus.Fields{
		"table":    schema.Table,
		"new":      summary.NewCount,
		"updated":  summary.UpdatedCount,
		"strategy": summary.Strategy,
	}).Info("Batch reconciled")
	return summary, nil
}

// merge is the primary path: stage the batch, merge, drop the staging
// table. The drop failure is logged but does not fail the load because
// session temporaries expire with the connection.
func (r *Reconciler) merge(ctx context.Context, schema warehouse.TableSchema, rows []warehouse.Row) error {
	staging, err := r.store.CreateStaging(ctx, schema)
	if err != nil {
		return err
	}
	defer func() {
		if dropErr := r.store.DropStaging(ctx, staging); dropErr != nil {
			r.log.WithError(dropErr).WithField("staging", staging).
				Warn("Failed to drop staging table")
		}
	}()

	if err := r.store.StageRows(ctx, schema, staging, rows); err != nil {
		return err
	}
	return r.store.Merge(ctx, schema, staging)
}

// deleteInsert is the fallback path: remove the keys the batch would have
// updated, then append the whole batch.
func (r *Reconciler) deleteInsert(ctx context.Context, schema warehouse.TableSchema, rows []warehouse.Row, updateKeys []int64) error {
	for start := 0; start < len(updateKeys); start += r.deleteBatch {
		end := start + r.deleteBatch
		if end > len(updateKeys) {
			end = len(updateKeys)
		}
		if err := r.store.DeleteByKeys(ctx, schema, updateKeys[start:end]); err != nil {
			return err
		}
	}
	return r.store.InsertRows(ctx, schema, rows)
}

// partitionKeys splits the batch keys into those absent from the target
// and those already present.
func partitionKeys(schema warehouse.TableSchema, rows []warehouse.Row, existing map[int64]struct{}) (newKeys, updateKeys []int64, err error) {
	idx := schema.KeyIndex()
	if idx < 0 {
		return nil, nil, apperrors.New(apperrors.ErrCodeSchemaMismatch,
			fmt.Sprintf("schema for %s has no key column %s", schema.Table, schema.KeyColumn))
	}
	for _, row := range rows {
		key, ok := row[idx].(int64)
		if !ok {
			return nil, nil, apperrors.New(apperrors.ErrCodeResultParsing,
				fmt.Sprintf("key column %s is not an integer", schema.KeyColumn))
		}
		if _, found := existing[key]; found {
			updateKeys = append(updateKeys, key)
		} else {
			newKeys = append(newKeys, key)
		}
	}
	return newKeys, updateKeys, nil
}
