package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fleetlogix/internal/source"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "List the source dates available for extraction",
	Long:  "Connect to the operational PostgreSQL database and show the most recent dates that have delivery data, with record counts.",
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
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

	dates, err := extractor.AvailableDates(ctx, 10)
	if err != nil {
		return err
	}

	fmt.Println("Available dates in source:")
	today := time.Now()
	for _, dc := range dates {
		daysAgo := int(today.Sub(dc.Date).Hours() / 24)
		fmt.Printf("  %s  %8d records  (%d days ago)\n",
			dc.Date.Format("2006-01-02"), dc.Records, daysAgo)
	}
	return nil
}
