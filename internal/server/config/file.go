package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/pandachat/internal/flagx"
	"github.com/dmitrijs2005/pandachat/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration file. Durations
// accept "24h"-style strings or integer nanoseconds. Zero values leave the
// corresponding setting untouched.
type FileConfig struct {
	Address               string         `json:"address" yaml:"address"`
	DatabaseDSN           string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey             string         `json:"secret_key" yaml:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration" yaml:"token_validity_duration"`
	FrontendURL           string         `json:"frontend_url" yaml:"frontend_url"`
	AdminCode             string         `json:"admin_code" yaml:"admin_code"`
	StoreTimeout          timex.Duration `json:"store_timeout" yaml:"store_timeout"`
	LogLevel              string         `json:"log_level" yaml:"log_level"`
	LogFile               string         `json:"log_file" yaml:"log_file"`
	TraceFile             string         `json:"trace_file" yaml:"trace_file"`
	S3RootUser            string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region              string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
}

// parseFile overlays settings from the file named by -c/-config, if any.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, fc)
	default:
		err = json.Unmarshal(b, fc)
	}
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.Address, fc.Address)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.SecretKey, fc.SecretKey)
	if fc.TokenValidityDuration.Duration != 0 {
		cfg.TokenValidityDuration = fc.TokenValidityDuration.Duration
	}
	setString(&cfg.FrontendURL, fc.FrontendURL)
	setString(&cfg.AdminCode, fc.AdminCode)
	if fc.StoreTimeout.Duration != 0 {
		cfg.StoreTimeout = fc.StoreTimeout.Duration
	}
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFile, fc.LogFile)
	setString(&cfg.TraceFile, fc.TraceFile)
	setString(&cfg.S3RootUser, fc.S3RootUser)
	setString(&cfg.S3RootPassword, fc.S3RootPassword)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
