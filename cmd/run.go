package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fleetlogix/internal/pipeline"
	"fleetlogix/internal/report"
	"fleetlogix/internal/source"
	"fleetlogix/internal/warehouse"
)

var runDryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full ETL pipeline",
	Long:  "Extract recent deliveries from PostgreSQL, transform them, and reconcile the batch into the Snowflake fact table.",
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "analyze the batch against the target table without writing")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	extractor, err := source.Connect(ctx, cfg.Source, log)
	if err != nil {
		return err
	}
	defer extractor.Close()

	service := warehouse.NewService(cfg.Warehouse, log)
	if err := service.Connect(ctx); err != nil {
		return err
	}
	defer service.Close()

	batch, err := extractor.ExtractRecent(ctx, cfg.Pipeline.ExtractDays, cfg.Pipeline.ExtractLimit)
	if err != nil {
		return err
	}

	store := warehouse.NewSQLStore(service.DB(), cfg.Pipeline.StageChunkSize, log)
	orchestrator := pipeline.NewOrchestrator(cfg.Pipeline, store, log)
	reporter := report.New(os.Stdout)

	if runDryRun {
		analysis, err := orchestrator.Analyze(ctx, batch)
		if err != nil {
			return err
		}
		reporter.Analysis(cfg.Pipeline.FactTable, analysis)
		return nil
	}

	result, err := orchestrator.Run(ctx, batch)
	reporter.RunSummary(result)
	if err != nil {
		return fmt.Errorf("pipeline ended in state %s: %w", result.State, err)
	}
	return nil
}
