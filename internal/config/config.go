// Package config provides configuration structures and loading for schemasync.
package config

// Config represents the complete application configuration.
type Config struct {
	Base         ConnectionConfig   `yaml:"base" mapstructure:"base"`
	Targets      []ConnectionConfig `yaml:"targets" mapstructure:"targets"`
	AccountsFile string             `yaml:"accounts_file" mapstructure:"accounts_file"` // CSV: first row base, rest targets
	Objects      ObjectsConfig      `yaml:"objects" mapstructure:"objects"`
	Processing   ProcessingConfig   `yaml:"processing" mapstructure:"processing"`
	Sync         SyncConfig         `yaml:"sync" mapstructure:"sync"`
	RowCounts    RowCountConfig     `yaml:"row_counts" mapstructure:"row_counts"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// ConnectionConfig describes one database to connect to.
type ConnectionConfig struct {
	Server             string `yaml:"server" mapstructure:"server"` // host, host,port or host\instance
	Port               int    `yaml:"port" mapstructure:"port"`     // 0 uses the driver default
	Database           string `yaml:"database" mapstructure:"database"`
	Username           string `yaml:"username" mapstructure:"username"`
	Password           string `yaml:"password" mapstructure:"password"`
	Driver             string `yaml:"driver" mapstructure:"driver"` // sqlserver (default) or mysql
	TLS                string `yaml:"tls" mapstructure:"tls"`       // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// ObjectsConfig lists the objects to compare or sync. A *_file entry points to
// a CSV sheet whose first column holds the names and replaces the inline list.
type ObjectsConfig struct {
	Tables         []string `yaml:"tables" mapstructure:"tables"`
	Views          []string `yaml:"views" mapstructure:"views"`
	Procedures     []string `yaml:"procedures" mapstructure:"procedures"`
	TablesFile     string   `yaml:"tables_file" mapstructure:"tables_file"`
	ViewsFile      string   `yaml:"views_file" mapstructure:"views_file"`
	ProceduresFile string   `yaml:"procedures_file" mapstructure:"procedures_file"`
}

// ProcessingConfig controls fan-out and connection behaviour.
type ProcessingConfig struct {
	Concurrency           int  `yaml:"concurrency" mapstructure:"concurrency"`
	ConnectTimeoutSeconds int  `yaml:"connect_timeout_seconds" mapstructure:"connect_timeout_seconds"`
	MaxRetries            int  `yaml:"max_retries" mapstructure:"max_retries"`
	ShowContent           bool `yaml:"show_content" mapstructure:"show_content"`
}

// SyncConfig controls how definitions are applied to targets.
type SyncConfig struct {
	AllowCreateNew      bool   `yaml:"allow_create_new" mapstructure:"allow_create_new"`
	Verify              bool   `yaml:"verify" mapstructure:"verify"`
	VerifyMethod        string `yaml:"verify_method" mapstructure:"verify_method"` // normalized or sha256
	OrderByDependencies bool   `yaml:"order_by_dependencies" mapstructure:"order_by_dependencies"`
	LockTimeoutSeconds  int    `yaml:"lock_timeout_seconds" mapstructure:"lock_timeout_seconds"`
	CacheMaxCost        int64  `yaml:"cache_max_cost" mapstructure:"cache_max_cost"` // bytes of definition text kept
}

// RowCountConfig enables the view row-count check against a derived test server.
type RowCountConfig struct {
	Enabled               bool   `yaml:"enabled" mapstructure:"enabled"`
	TestServerPattern     string `yaml:"test_server_pattern" mapstructure:"test_server_pattern"`
	TestServerReplacement string `yaml:"test_server_replacement" mapstructure:"test_server_replacement"`
}

// OutputConfig selects the report sink.
type OutputConfig struct {
	File   string `yaml:"file" mapstructure:"file"`     // empty prints to the console
	Format string `yaml:"format" mapstructure:"format"` // json or csv when File is set
	Color  bool   `yaml:"color" mapstructure:"color"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Base: ConnectionConfig{
			Driver: "sqlserver",
		},
		Processing: ProcessingConfig{
			Concurrency:           8,
			ConnectTimeoutSeconds: 10,
			MaxRetries:            3,
		},
		Sync: SyncConfig{
			VerifyMethod:       "normalized",
			LockTimeoutSeconds: 30,
			CacheMaxCost:       64 << 20,
		},
		RowCounts: RowCountConfig{
			TestServerPattern:     `(\D+)(\d+)`,
			TestServerReplacement: "${1}TST${2}",
		},
		Output: OutputConfig{
			Format: "json",
			Color:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Connections returns the base followed by every target.
func (c *Config) Connections() []ConnectionConfig {
	out := make([]ConnectionConfig, 0, len(c.Targets)+1)
	out = append(out, c.Base)
	return append(out, c.Targets...)
}
