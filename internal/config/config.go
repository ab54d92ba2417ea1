// Package config provides Viper-based configuration management for proxyctl
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"keepersecurity.com/ksm-proxy-users/proxy"
)

const DefaultBaseUrl = "http://localhost:4000"

// Config is the configuration of one proxyctl invocation
type Config struct {
	BaseUrl      string       `mapstructure:"base_url" validate:"required,url"`
	MasterKey    string       `mapstructure:"master_key" validate:"required"`
	KsmConfig    string       `mapstructure:"ksm_config"`
	KsmRecordUid string       `mapstructure:"ksm_record_uid"`
	Debug        bool         `mapstructure:"debug"`
	DryRun       bool         `mapstructure:"dry_run"`
	Output       OutputConfig `mapstructure:"output"`

	// Ksm holds the record parameters when the master key was read from Keeper Secrets Manager
	Ksm *proxy.ProxyParameters `mapstructure:"-"`
	// Google is set when the Keeper record carries Google Workspace credentials
	Google *proxy.GoogleEndpointParameters `mapstructure:"-"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"base-url":   "base_url",
	"master-key": "master_key",
	"ksm-config": "ksm_config",
	"debug":      "debug",
	"dry-run":    "dry_run",
}

var envKeys = map[string]string{
	"base_url":       "LITELLM_BASE_URL",
	"master_key":     "LITELLM_MASTER_KEY",
	"ksm_config":     "KSM_CONFIG_BASE64",
	"ksm_record_uid": "KSM_RECORD_UID",
}

var loadKsmParameters = proxy.LoadProxyParameters

// Load reads configuration from the config file, .env, environment variables and flags.
// Flags win over the environment, the environment wins over the file.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".proxyctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/proxyctl")
	}

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding --%s: %w", name, err)
				}
			}
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.MasterKey == "" && cfg.KsmConfig != "" {
		pp, gcp, err := loadKsmParameters(cfg.KsmConfig, cfg.KsmRecordUid)
		if err != nil {
			return nil, fmt.Errorf("loading Keeper record: %w", err)
		}
		cfg.Ksm = pp
		cfg.Google = gcp
		cfg.MasterKey = pp.MasterKey
		if cfg.BaseUrl == "" {
			cfg.BaseUrl = pp.BaseUrl
		}
		if pp.Verbose {
			cfg.Debug = true
		}
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = DefaultBaseUrl
	}
	cfg.BaseUrl = strings.TrimRight(cfg.BaseUrl, "/")

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("output.colors", true)
	v.SetDefault("debug", false)
	v.SetDefault("dry_run", false)
}

// Validate checks the configuration for errors
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return err
		}
		var messages []string
		for _, fe := range errs {
			switch fe.Field() {
			case "MasterKey":
				messages = append(messages, "master key is required (--master-key, LITELLM_MASTER_KEY or a Keeper record)")
			case "BaseUrl":
				messages = append(messages, fmt.Sprintf("base URL %q is not a valid URL", cfg.BaseUrl))
			default:
				messages = append(messages, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
		}
		return &ValidationError{Messages: messages}
	}
	return nil
}

// ValidationError lists every invalid setting
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Messages, "; ")
}
