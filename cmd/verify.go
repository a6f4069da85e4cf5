package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"fleetlogix/internal/verify"
	"fleetlogix/internal/warehouse"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check connectivity and fact table integrity",
	Long:  "Connect to the Snowflake warehouse, report the session context, and run integrity checks against the fact table.",
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	service := warehouse.NewService(cfg.Warehouse, log)
	if err := service.Connect(ctx); err != nil {
		return err
	}
	defer service.Close()

	info, err := service.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Connected to %s.%s on warehouse %s (version %s)\n\n",
		info.Database, info.Schema, info.Warehouse, info.Version)

	schema := warehouse.FactDeliveriesSchema(cfg.Pipeline.FactTable)
	checker := verify.NewChecker(service.DB(), schema, log)

	results, err := checker.Run(ctx)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Check", "Status", "Detail"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	failed := 0
	for _, r := range results {
		status := color.GreenString("PASS")
		if !r.Passed {
			status = color.RedString("FAIL")
			failed++
		}
		table.Append([]string{r.Name, status, r.Detail})
	}
	table.Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d integrity checks failed", failed, len(results))
	}
	fmt.Printf("\nAll %d integrity checks passed\n", len(results))
	return nil
}
