// Package config loads and validates the gateway's environment-driven configuration (spec
// §6). Config is parsed once at process start into an immutable Config value; nothing else
// in the gateway reads os.Getenv directly.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Env is the deployment mode, used to gate dangerous feature flags (FF_TEST_BYPASS).
type Env string

const (
	EnvProduction  Env = "production"
	EnvStaging     Env = "staging"
	EnvDevelopment Env = "development"
)

// FeatureFlags holds the FF_* toggles read from the environment.
type FeatureFlags struct {
	Policy      bool
	Breakers    bool
	Retry       bool
	Cache       bool
	Chaos       bool
	TestBypass  bool
}

// Config is the gateway's fully-resolved, validated configuration.
type Config struct {
	Env Env

	KEK []byte // decoded from KEK_BASE64, 32 bytes

	SigningSecret []byte // SIGNING_SECRET, raw bytes

	GatewayPrivateKeyPEM []byte // GATEWAY_PRIVATE_KEY, optional

	HTTPTimeout time.Duration // HTTP_TIMEOUT_MS, default 6000ms

	DefaultTimezone string // DEFAULT_TIMEZONE, default America/Toronto

	UpstreamMode string // "mock" or "live"

	Flags FeatureFlags
}

// ReadinessWarning is a non-fatal configuration concern surfaced at startup, e.g. enabling
// FF_TEST_BYPASS in any environment.
type ReadinessWarning struct {
	Code    string
	Message string
}

// Load reads and validates configuration from the process environment. It never returns a
// partially-valid Config: on error, the returned Config is the zero value.
func Load(getenv func(string) string) (Config, []ReadinessWarning, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var cfg Config
	var warnings []ReadinessWarning

	cfg.Env = Env(orDefault(getenv("GATEWAY_ENV"), string(EnvDevelopment)))

	kekRaw := getenv("KEK_BASE64")
	if kekRaw == "" {
		return Config{}, nil, fmt.Errorf("config: KEK_BASE64 is required")
	}
	kek, err := base64.StdEncoding.DecodeString(kekRaw)
	if err != nil {
		return Config{}, nil, fmt.Errorf("config: KEK_BASE64 is not valid base64: %w", err)
	}
	if len(kek) != 32 {
		return Config{}, nil, fmt.Errorf("config: KEK_BASE64 must decode to 32 bytes, got %d", len(kek))
	}
	cfg.KEK = kek

	signingSecret := getenv("SIGNING_SECRET")
	if signingSecret == "" {
		return Config{}, nil, fmt.Errorf("config: SIGNING_SECRET is required")
	}
	if len(signingSecret) < 32 {
		return Config{}, nil, fmt.Errorf("config: SIGNING_SECRET must be at least 32 bytes")
	}
	cfg.SigningSecret = []byte(signingSecret)

	cfg.GatewayPrivateKeyPEM = []byte(getenv("GATEWAY_PRIVATE_KEY"))

	timeoutMS, err := parseIntDefault(getenv("HTTP_TIMEOUT_MS"), 6000)
	if err != nil {
		return Config{}, nil, fmt.Errorf("config: HTTP_TIMEOUT_MS: %w", err)
	}
	cfg.HTTPTimeout = time.Duration(timeoutMS) * time.Millisecond

	cfg.DefaultTimezone = orDefault(getenv("DEFAULT_TIMEZONE"), "America/Toronto")

	cfg.UpstreamMode = orDefault(getenv("UPSTREAM_MODE"), "mock")
	if cfg.UpstreamMode != "mock" && cfg.UpstreamMode != "live" {
		return Config{}, nil, fmt.Errorf("config: UPSTREAM_MODE must be 'mock' or 'live', got %q", cfg.UpstreamMode)
	}

	cfg.Flags = FeatureFlags{
		Policy:     parseBoolDefault(getenv("FF_POLICY"), true),
		Breakers:   parseBoolDefault(getenv("FF_BREAKERS"), true),
		Retry:      parseBoolDefault(getenv("FF_RETRY"), true),
		Cache:      parseBoolDefault(getenv("FF_CACHE"), true),
		Chaos:      parseBoolDefault(getenv("FF_CHAOS"), false),
		TestBypass: parseBoolDefault(getenv("FF_TEST_BYPASS"), false),
	}

	if cfg.Flags.TestBypass {
		warnings = append(warnings, ReadinessWarning{
			Code:    "FF_TEST_BYPASS_ON",
			Message: "FF_TEST_BYPASS is enabled: token authentication is bypassed for all requests",
		})
		if cfg.Env == EnvProduction {
			return Config{}, nil, fmt.Errorf("config: FF_TEST_BYPASS must not be enabled when GATEWAY_ENV=production")
		}
	}

	return cfg, warnings, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseIntDefault(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func parseBoolDefault(v string, def bool) bool {
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	case "off", "false", "0", "no":
		return false
	default:
		return def
	}
}
