package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"fleetlogix/internal/config"
	"fleetlogix/pkg/models"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initial configuration setup",
	Run:   runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) {
	fmt.Println("Setting up FleetLogix ETL...")
	fmt.Println()

	if config.Exists() {
		var overwrite bool
		prompt := &survey.Confirm{
			Message: "Configuration already exists. Do you want to overwrite it?",
			Default: false,
		}
		survey.AskOne(prompt, &overwrite)
		if !overwrite {
			fmt.Println("Setup cancelled.")
			return
		}
	}

	cfg := &models.Config{}

	fmt.Println("Source Database (PostgreSQL)")
	fmt.Println("----------------------------")

	sourceQs := []*survey.Question{
		{
			Name:     "host",
			Prompt:   &survey.Input{Message: "Host:", Default: "localhost"},
			Validate: survey.Required,
		},
		{
			Name:   "port",
			Prompt: &survey.Input{Message: "Port:", Default: "5432"},
		},
		{
			Name:     "username",
			Prompt:   &survey.Input{Message: "Username:"},
			Validate: survey.Required,
		},
		{
			Name:     "password",
			Prompt:   &survey.Password{Message: "Password:"},
			Validate: survey.Required,
		},
		{
			Name:     "database",
			Prompt:   &survey.Input{Message: "Database:", Default: "fleetlogix"},
			Validate: survey.Required,
		},
	}
	if err := survey.Ask(sourceQs, &cfg.Source); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Warehouse (Snowflake)")
	fmt.Println("---------------------")

	warehouseQs := []*survey.Question{
		{
			Name:     "account",
			Prompt:   &survey.Input{Message: "Snowflake Account (e.g., xy12345.us-east-1):"},
			Validate: survey.Required,
		},
		{
			Name:     "username",
			Prompt:   &survey.Input{Message: "Username:"},
			Validate: survey.Required,
		},
		{
			Name:     "password",
			Prompt:   &survey.Password{Message: "Password:"},
			Validate: survey.Required,
		},
		{
			Name:     "role",
			Prompt:   &survey.Input{Message: "Role:", Default: "ACCOUNTADMIN"},
			Validate: survey.Required,
		},
		{
			Name:     "warehouse",
			Prompt:   &survey.Input{Message: "Warehouse:", Default: "COMPUTE_WH"},
			Validate: survey.Required,
		},
		{
			Name:     "database",
			Prompt:   &survey.Input{Message: "Database:", Default: "FLEETLOGIX_DW"},
			Validate: survey.Required,
		},
		{
			Name:     "schema",
			Prompt:   &survey.Input{Message: "Schema:", Default: "STAR_SCHEMA"},
			Validate: survey.Required,
		},
	}
	if err := survey.Ask(warehouseQs, &cfg.Warehouse); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cfg.ApplyDefaults()

	if err := config.Save(cfg); err != nil {
		fmt.Printf("Error saving configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Configuration saved to %s\n", config.GetConfigFile())
	fmt.Println("Run 'fleetlogix verify' to test connectivity.")
}
