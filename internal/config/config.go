package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config represents application configuration
type Config struct {
	Jira   JiraConfig   `mapstructure:"jira"`
	Report ReportConfig `mapstructure:"report"`
	Log    LogConfig    `mapstructure:"log"`
}

// JiraConfig represents the Jira connection configuration
type JiraConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Token    string `mapstructure:"token"`
	Username string `mapstructure:"username"` // Optional: resolved via /myself when empty
}

// ReportConfig represents report behavior configuration
type ReportConfig struct {
	StateFile string `mapstructure:"state_file"` // Remembered year/month selection
}

// LogConfig represents logging configuration
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.jira-worklogs")
		v.AddConfigPath("/etc/jira-worklogs")
	}

	// Read environment variables
	v.AutomaticEnv()

	v.SetDefault("report.state_file", defaultStateFile())

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ExpandEnvVars()

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Jira.BaseURL == "" {
		return fmt.Errorf("jira.base_url is required")
	}
	if c.Jira.Token == "" {
		return fmt.Errorf("jira.token is required")
	}
	if c.Report.StateFile == "" {
		return fmt.Errorf("report.state_file is required")
	}
	return nil
}

// ExpandEnvVars expands environment variables in config strings
func (c *Config) ExpandEnvVars() {
	c.Jira.BaseURL = os.ExpandEnv(c.Jira.BaseURL)
	c.Jira.Token = os.ExpandEnv(c.Jira.Token)
	c.Jira.Username = os.ExpandEnv(c.Jira.Username)
	c.Report.StateFile = os.ExpandEnv(c.Report.StateFile)
	c.Log.File = os.ExpandEnv(c.Log.File)
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "report-state.json"
	}
	return home + "/.jira-worklogs/report-state.json"
}
