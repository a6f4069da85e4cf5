package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"fleetlogix/internal/reconcile"
	"fleetlogix/internal/warehouse"
	apperrors "fleetlogix/pkg/errors"
	"fleetlogix/pkg/models"
)

// State is the position of a batch within the pipeline. States advance
// strictly forward; any stage failure moves the batch to StateFailed and
// nothing after the failed stage runs.
type State string

const (
	StateExtracted    State = "EXTRACTED"
	StateValidated    State = "VALIDATED"
	StateEnriched     State = "ENRICHED"
	StateKeysVerified State = "KEYS_VERIFIED"
	StateProjected    State = "PROJECTED"
	StateReconciled   State = "RECONCILED"
	StateFailed       State = "FAILED"
)

// Result is the full account of one pipeline run.
type Result struct {
	State        State
	InputRows    int
	ValidRows    int
	QualityScore float64
	KeyStats     []KeyStats
	Summary      reconcile.Summary
}

// Orchestrator drives one batch through validation, enrichment, key
// verification, projection and reconciliation in order.
type Orchestrator struct {
	validator  *Validator
	metrics    *MetricCalculator
	keys       *KeyVerifier
	projector  *Projector
	reconciler *reconcile.Reconciler
	log        logrus.FieldLogger
}

func NewOrchestrator(cfg models.Pipeline, store warehouse.Store, log logrus.FieldLogger) *Orchestrator {
	schema := warehouse.FactDeliveriesSchema(cfg.FactTable)
	return &Orchestrator{
		validator:  NewValidator(log),
		metrics:    NewMetricCalculator(log),
		keys:       NewKeyVerifier(log),
		projector:  NewProjector(schema, log),
		reconciler: reconcile.New(store, cfg.DeleteBatchSize, log),
		log:        log.WithField("component", "orchestrator"),
	}
}

// Analyze runs the batch through every transformation stage and compares
// the projected rows against the target table without writing anything.
func (o *Orchestrator) Analyze(ctx context.Context, batch Batch) (reconcile.Analysis, error) {
	var analysis reconcile.Analysis
	if len(batch) == 0 {
		return analysis, apperrors.New(apperrors.ErrCodeEmptyBatch, "no rows extracted from source")
	}

	batch = o.validator.Apply(batch)
	if len(batch) == 0 {
		return analysis, apperrors.New(apperrors.ErrCodeEmptyBatch, "every extracted row failed validation")
	}
	batch = o.metrics.Enrich(batch)
	_, batch = o.keys.Verify(batch)

	schema, rows, err := o.projector.Project(batch)
	if err != nil {
		return analysis, err
	}
	return o.reconciler.Analyze(ctx, schema, rows)
}

// Run processes one extracted batch end to end. The returned Result always
// carries the last state reached, including StateFailed alongside the
// error that stopped the run.
func (o *Orchestrator) Run(ctx context.Context, batch Batch) (Result, error) {
	result := Result{State: StateExtracted, InputRows: len(batch)}

	if len(batch) == 0 {
		result.State = StateFailed
		return result, apperrors.New(apperrors.ErrCodeEmptyBatch, "no rows extracted from source")
	}

	batch = o.validator.Apply(batch)
	result.ValidRows = len(batch)
	if len(batch) == 0 {
		result.State = StateFailed
		return result, apperrors.New(apperrors.ErrCodeEmptyBatch,
			"every extracted row failed validation").
			WithContext("input_rows", result.InputRows).
			WithSuggestions("Inspect source data quality", "Review validation bounds against recent loads")
	}
	result.State = StateValidated

	batch = o.metrics.Enrich(batch)
	result.QualityScore = batch[0].QualityScore
	result.State = StateEnriched

	result.KeyStats, batch = o.keys.Verify(batch)
	result.State = StateKeysVerified

	schema, rows, err := o.projector.Project(batch)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.State = StateProjected

	summary, err := o.reconciler.Reconcile(ctx, schema, rows)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.Summary = summary
	result.State = StateReconciled

	o.log.WithFields(logrus.Fields{
		"input_rows":    result.InputRows,
		"valid_rows":    result.ValidRows,
		"quality_score": result.QualityScore,
		"new":           summary.NewCount,
		"updated":       summary.UpdatedCount,
		"strategy":      summary.Strategy,
	}).Info("Pipeline run complete")

	return result, nil
}
