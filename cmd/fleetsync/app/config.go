package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/fleetsync/pkg/constants"
)

// Config holds the application settings loaded from the settings file,
// environment variables and .env files. Flags override them after parsing.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// ConfigFile is the fleet configuration file.
	ConfigFile string
	// SettingsFile is the settings file that was read, if any.
	SettingsFile string

	// Logging configuration. LogLevel is the explicit --log-level value;
	// EnvLogLevel comes from the environment or settings file.
	LogLevel    string
	EnvLogLevel string
	LogFormat   string
	LogOutput   string
}

// LoadConfig loads settings from all sources in order of precedence:
//  1. Command-line flags (applied later by cobra)
//  2. Environment variables (FLEETSYNC_*, LOG_*)
//  3. .env and .env.local
//  4. Settings file (./.fleetsync.yaml, then ~/.fleetsync.yaml)
//  5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix("fleetsync")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("config_file", constants.DefaultConfigFile)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
	v.SetDefault("format", "")

	// Plain LOG_* variables are honored as well as FLEETSYNC_LOG_*.
	for _, key := range []string{"log_level", "log_format", "log_output"} {
		if err := v.BindEnv(key, "FLEETSYNC_"+strings.ToUpper(key), strings.ToUpper(key)); err != nil {
			return nil, err
		}
	}

	if file := os.Getenv("FLEETSYNC_SETTINGS"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".fleetsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
			return nil, err
		}
	}

	return &Config{
		NoColor:      v.GetBool("no_color"),
		Format:       v.GetString("format"),
		ConfigFile:   v.GetString("config_file"),
		SettingsFile: v.ConfigFileUsed(),
		EnvLogLevel:  v.GetString("log_level"),
		LogFormat:    v.GetString("log_format"),
		LogOutput:    v.GetString("log_output"),
	}, nil
}

// UpdateFromFlags updates config values from parsed command flags.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	c.LogLevel = logLevel
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
