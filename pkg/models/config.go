package models

// Config is the root of the fleetlogix configuration file.
type Config struct {
	Source    Source    `yaml:"source"`
	Warehouse Warehouse `yaml:"warehouse"`
	Pipeline  Pipeline  `yaml:"pipeline"`
}

// Source holds the PostgreSQL connection settings for the operational store.
type Source struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"` // disable, require, verify-full
}

// Warehouse holds the Snowflake connection settings for the target warehouse.
type Warehouse struct {
	Account   string `yaml:"account"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Timeout   string `yaml:"timeout"` // e.g. "30s"
}

// Pipeline holds the tunables of the ETL run.
type Pipeline struct {
	FactTable       string `yaml:"fact_table"`        // Target fact table name
	ExtractDays     int    `yaml:"extract_days"`      // How many recent dates to pull per run
	ExtractLimit    int    `yaml:"extract_limit"`     // Max rows per extracted date
	StageChunkSize  int    `yaml:"stage_chunk_size"`  // Rows per staging INSERT statement
	DeleteBatchSize int    `yaml:"delete_batch_size"` // Keys per DELETE statement on the fallback path
}

// ApplyDefaults fills zero-valued pipeline tunables with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Pipeline.FactTable == "" {
		c.Pipeline.FactTable = "FACT_DELIVERIES"
	}
	if c.Pipeline.ExtractDays == 0 {
		c.Pipeline.ExtractDays = 7
	}
	if c.Pipeline.ExtractLimit == 0 {
		c.Pipeline.ExtractLimit = 10000
	}
	if c.Pipeline.StageChunkSize == 0 {
		c.Pipeline.StageChunkSize = 1000
	}
	if c.Pipeline.DeleteBatchSize == 0 {
		c.Pipeline.DeleteBatchSize = 500
	}
	if c.Source.Port == 0 {
		c.Source.Port = 5432
	}
	if c.Source.SSLMode == "" {
		c.Source.SSLMode = "disable"
	}
	if c.Warehouse.Role == "" {
		c.Warehouse.Role = "ACCOUNTADMIN"
	}
}
