package config

import (
	"fmt"
	"time"
)

// parseEnv overlays settings from environment variables. Unset or empty
// variables leave the current value in place.
//
//	ADDRESS, PORT        bind address (PORT alone yields ":<PORT>")
//	DATABASE_DSN         PostgreSQL DSN
//	SECRET_KEY           token signing secret
//	TOKEN_VALIDITY       Go duration, e.g. "24h"
//	FRONTEND_URL         allowed CORS origin
//	ADMIN_CODE           admin self-registration code
//	STORE_TIMEOUT        Go duration, e.g. "5s"
//	LOG_LEVEL, LOG_FILE  logging
//	TRACE_FILE           span export file
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return v
	}

	if port := get("PORT"); port != "" {
		cfg.Address = ":" + port
	}
	setString(&cfg.Address, get("ADDRESS"))
	setString(&cfg.DatabaseDSN, get("DATABASE_DSN"))
	setString(&cfg.SecretKey, get("SECRET_KEY"))
	setString(&cfg.FrontendURL, get("FRONTEND_URL"))
	setString(&cfg.AdminCode, get("ADMIN_CODE"))
	setString(&cfg.LogLevel, get("LOG_LEVEL"))
	setString(&cfg.LogFile, get("LOG_FILE"))
	setString(&cfg.TraceFile, get("TRACE_FILE"))
	setString(&cfg.S3RootUser, get("S3_ROOT_USER"))
	setString(&cfg.S3RootPassword, get("S3_ROOT_PASSWORD"))
	setString(&cfg.S3Bucket, get("S3_BUCKET"))
	setString(&cfg.S3Region, get("S3_REGION"))
	setString(&cfg.S3BaseEndpoint, get("S3_BASE_ENDPOINT"))

	if err := setDuration(&cfg.TokenValidityDuration, "TOKEN_VALIDITY", get("TOKEN_VALIDITY")); err != nil {
		return err
	}
	return setDuration(&cfg.StoreTimeout, "STORE_TIMEOUT", get("STORE_TIMEOUT"))
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
