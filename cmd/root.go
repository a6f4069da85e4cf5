package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fleetlogix/internal/config"
	"fleetlogix/pkg/models"
)

var (
	verbose bool
	log     = logrus.New()

	rootCmd = &cobra.Command{
		Use:   "fleetlogix",
		Short: "Load delivery facts into the Snowflake warehouse",
		Long:  "FleetLogix ETL - extracts delivery data from the operational PostgreSQL database, validates and enriches it, and reconciles it into the Snowflake fact table",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home + "/.fleetlogix")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is okay for now
	}
}

// loadConfig reads the saved configuration and overlays any values viper
// resolved from a project-local config file, so a ./config.yaml next to
// the working directory can override the one in the home directory.
func loadConfig() (*models.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyViperOverrides(cfg)
	return cfg, nil
}

func applyViperOverrides(cfg *models.Config) {
	if v := viper.GetString("source.host"); v != "" {
		cfg.Source.Host = v
	}
	if v := viper.GetInt("source.port"); v != 0 {
		cfg.Source.Port = v
	}
	if v := viper.GetString("source.username"); v != "" {
		cfg.Source.Username = v
	}
	if v := viper.GetString("source.password"); v != "" {
		cfg.Source.Password = v
	}
	if v := viper.GetString("source.database"); v != "" {
		cfg.Source.Database = v
	}
	if v := viper.GetString("source.sslmode"); v != "" {
		cfg.Source.SSLMode = v
	}

	if v := viper.GetString("warehouse.account"); v != "" {
		cfg.Warehouse.Account = v
	}
	if v := viper.GetString("warehouse.username"); v != "" {
		cfg.Warehouse.Username = v
	}
	if v := viper.GetString("warehouse.password"); v != "" {
		cfg.Warehouse.Password = v
	}
	if v := viper.GetString("warehouse.role"); v != "" {
		cfg.Warehouse.Role = v
	}
	if v := viper.GetString("warehouse.warehouse"); v != "" {
		cfg.Warehouse.Warehouse = v
	}
	if v := viper.GetString("warehouse.database"); v != "" {
		cfg.Warehouse.Database = v
	}
	if v := viper.GetString("warehouse.schema"); v != "" {
		cfg.Warehouse.Schema = v
	}
	if v := viper.GetString("warehouse.timeout"); v != "" {
		cfg.Warehouse.Timeout = v
	}

	if v := viper.GetString("pipeline.fact_table"); v != "" {
		cfg.Pipeline.FactTable = v
	}
	if v := viper.GetInt("pipeline.extract_days"); v != 0 {
		cfg.Pipeline.ExtractDays = v
	}
	if v := viper.GetInt("pipeline.extract_limit"); v != 0 {
		cfg.Pipeline.ExtractLimit = v
	}
	if v := viper.GetInt("pipeline.stage_chunk_size"); v != 0 {
		cfg.Pipeline.StageChunkSize = v
	}
	if v := viper.GetInt("pipeline.delete_batch_size"); v != 0 {
		cfg.Pipeline.DeleteBatchSize = v
	}
}
