package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const envPrefix = "WEBDESK_"

// Environment variable names, each prefixed with WEBDESK_.
const (
	envRoot              = "ROOT"
	envAddr              = "ADDR"
	envPublicDir         = "PUBLIC_DIR"
	envViewMaxAge        = "VIEW_MAX_AGE"
	envUploadMaxMemory   = "UPLOAD_MAX_MEMORY"
	envLogLevel          = "LOG_LEVEL"
	envMetrics           = "METRICS"
	envCORSOrigins       = "CORS_ORIGINS"
	envConnectionTimeout = "CONNECTION_TIMEOUT"
	envShutdownTimeout   = "SHUTDOWN_TIMEOUT"
)

// LoadEnvOverride reads WEBDESK_* variables through lookup (os.LookupEnv
// when nil). Unset variables leave the override field nil.
func LoadEnvOverride(lookup func(string) (string, bool)) (*ConfigOverride, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) (string, bool) {
		value, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(value) == "" {
			return "", false
		}
		return strings.TrimSpace(value), true
	}

	var override ConfigOverride

	if v, ok := get(envRoot); ok {
		override.Root = &v
	}
	if v, ok := get(envAddr); ok {
		override.Addr = &v
	}
	if v, ok := get(envPublicDir); ok {
		override.PublicDir = &v
	}
	if v, ok := get(envLogLevel); ok {
		override.LogLevel = &v
	}
	if v, ok := get(envCORSOrigins); ok {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				override.CORSOrigins = append(override.CORSOrigins, origin)
			}
		}
	}
	if v, ok := get(envMetrics); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("$%s%s (%v) is not a valid boolean", envPrefix, envMetrics, v)
		}
		override.Metrics = &b
	}
	if v, ok := get(envUploadMaxMemory); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("$%s%s (%v) is not a valid integer", envPrefix, envUploadMaxMemory, v)
		}
		override.UploadMaxMemory = &n
	}

	durations := []struct {
		name   string
		target **Duration
	}{
		{envViewMaxAge, &override.ViewMaxAge},
		{envConnectionTimeout, &override.ConnectionTimeout},
		{envShutdownTimeout, &override.ShutdownTimeout},
	}
	for _, d := range durations {
		v, ok := get(d.name)
		if !ok {
			continue
		}
		parsed, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("$%s%s (%v) is not a valid duration", envPrefix, d.name, v)
		}
		*d.target = &Duration{Duration: parsed}
	}

	return &override, nil
}
