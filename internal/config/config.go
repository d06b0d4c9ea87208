package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Journal  JournalConfig  `yaml:"journal" mapstructure:"journal"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SnapshotConfig describes where export snapshots live and how they are named.
type SnapshotConfig struct {
	Dir        string   `yaml:"dir" mapstructure:"dir"`
	Prefix     string   `yaml:"prefix" mapstructure:"prefix"`
	Extension  string   `yaml:"extension" mapstructure:"extension"`
	NullValues []string `yaml:"null_values" mapstructure:"null_values"`
}

// LedgerConfig locates the master workbook.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// JournalConfig configures the optional SQLite run journal. An empty path
// disables it.
type JournalConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("snapshot.dir", "./Raw-Backups")
	v.SetDefault("snapshot.prefix", "kenmei-export-")
	v.SetDefault("snapshot.extension", ".csv")
	v.SetDefault("snapshot.null_values", []string{})
	v.SetDefault("ledger.path", "MasterBackup.xlsx")
	v.SetDefault("journal.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings a run cannot do without.
func (c *Config) Validate() error {
	if c.Snapshot.Dir == "" {
		return eris.New("config: snapshot.dir is required")
	}
	if c.Ledger.Path == "" {
		return eris.New("config: ledger.path is required")
	}
	if c.Snapshot.Extension != "" && !strings.HasPrefix(c.Snapshot.Extension, ".") {
		return eris.Errorf("config: snapshot.extension %q must start with a dot", c.Snapshot.Extension)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.DisableStacktrace = true
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
