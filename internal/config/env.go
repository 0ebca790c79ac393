package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names recognized by ApplyEnv. List-valued variables
// take comma-separated entries.
const (
	EnvEnabled          = "STAGEHAND_ENABLED"
	EnvExcludePatterns  = "STAGEHAND_EXCLUDE_PATTERNS"
	EnvIncludePatterns  = "STAGEHAND_INCLUDE_PATTERNS"
	EnvMaxFileSize      = "STAGEHAND_MAX_FILE_SIZE_BYTES"
	EnvRestrictToDirs   = "STAGEHAND_RESTRICT_TO_DIRS"
	EnvDelayMs          = "STAGEHAND_DELAY_MS"
	EnvCommandTimeoutMs = "STAGEHAND_COMMAND_TIMEOUT_MS"
)

// ApplyEnv overrides cfg fields from STAGEHAND_* environment variables.
// Unset variables leave the corresponding field untouched; unparseable
// values are ignored.
func ApplyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvEnabled); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}
	if v, ok := os.LookupEnv(EnvExcludePatterns); ok {
		cfg.ExcludePatterns = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvIncludePatterns); ok {
		cfg.IncludePatterns = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvMaxFileSize); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxFileSizeBytes = n
		}
	}
	if v, ok := os.LookupEnv(EnvRestrictToDirs); ok {
		cfg.RestrictToDirs = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvDelayMs); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DelayMs = n
		}
	}
	if v, ok := os.LookupEnv(EnvCommandTimeoutMs); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CommandTimeoutMs = n
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
