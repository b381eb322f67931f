package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)
	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns in connection settings and paths.
func substituteEnvVars(cfg *Config) {
	expandConnection(&cfg.Base)
	for i := range cfg.Targets {
		expandConnection(&cfg.Targets[i])
	}

	cfg.AccountsFile = expandEnvVar(cfg.AccountsFile)
	cfg.Objects.TablesFile = expandEnvVar(cfg.Objects.TablesFile)
	cfg.Objects.ViewsFile = expandEnvVar(cfg.Objects.ViewsFile)
	cfg.Objects.ProceduresFile = expandEnvVar(cfg.Objects.ProceduresFile)
	cfg.Output.File = expandEnvVar(cfg.Output.File)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

func expandConnection(c *ConnectionConfig) {
	c.Server = expandEnvVar(c.Server)
	c.Database = expandEnvVar(c.Database)
	c.Username = expandEnvVar(c.Username)
	c.Password = expandEnvVar(c.Password)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// Overrides carries CLI flag values. Zero values leave the file setting alone.
type Overrides struct {
	LogLevel       string
	LogFormat      string
	Concurrency    int
	OutputFile     string
	OutputFormat   string
	ShowContent    bool
	AllowCreateNew bool
	NoColor        bool
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if o.Concurrency > 0 {
		c.Processing.Concurrency = o.Concurrency
	}
	if o.OutputFile != "" {
		c.Output.File = o.OutputFile
	}
	if o.OutputFormat != "" {
		c.Output.Format = o.OutputFormat
	}
	if o.ShowContent {
		c.Processing.ShowContent = true
	}
	if o.AllowCreateNew {
		c.Sync.AllowCreateNew = true
	}
	if o.NoColor {
		c.Output.Color = false
	}
}
