package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName = ".rangekeeper"
	configType = "yaml"
	envPrefix  = "RANGEKEEPER"
)

// Load reads configuration. An explicit path must exist; otherwise
// .rangekeeper.yaml is searched in the working directory and then $HOME, and
// a missing file just means defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.json", DefaultLogJSON)

	v.SetDefault("input.format", DefaultInputFormat)
	v.SetDefault("input.validate_schema", DefaultValidateSchema)

	v.SetDefault("report.format", DefaultReportFormat)
	v.SetDefault("report.color", DefaultReportColor)
	v.SetDefault("report.plot_title", DefaultPlotTitle)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_headers", "")
	v.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	v.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	v.SetDefault("telemetry.environment", "")

	v.SetDefault("mcp.metrics_addr", "")
}
