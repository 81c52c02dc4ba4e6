package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"thinkgw/internal/bridge"
	"thinkgw/internal/domain"
	"thinkgw/internal/services/handshake"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "THINKGW_"

const defaultHomeDir = ".thinkgw"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home            string        // config directory, e.g. $HOME/.thinkgw
	Passphrase      string        // seals the secrets store
	AllowInsecure   bool          // permit ws:// gateways
	Timeout         time.Duration // bound for each connect attempt
	Role            domain.Role
	Scopes          []string
	LogLevel        string
	MQTTBroker      string // e.g. tcp://localhost:1883; empty disables forwarding
	MQTTTopicPrefix string
	MQTTUsername    string
	MQTTPassword    string
}

// DefaultConfig returns the built-in defaults. Home is left empty and
// resolved by ResolveHome.
func DefaultConfig() Config {
	return Config{
		Timeout:         handshake.DefaultTimeout,
		Role:            handshake.DefaultRole,
		Scopes:          append([]string(nil), handshake.DefaultScopes...),
		LogLevel:        "warn",
		MQTTTopicPrefix: bridge.DefaultTopicPrefix,
	}
}

// LoadConfig loads the given .env files (".env" when none are named) into the
// process environment, then builds a Config from THINKGW_* variables. Missing
// files are ignored and variables already set take precedence over them.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return ConfigFromEnv(os.LookupEnv)
}

// ConfigFromEnv applies THINKGW_* variables from lookup on top of DefaultConfig.
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("HOME"); ok {
		cfg.Home = v
	}
	if v, ok := lookup(EnvPrefix + "PASSPHRASE"); ok {
		cfg.Passphrase = v
	}
	if v, ok := get("ALLOW_INSECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%sALLOW_INSECURE: %w", EnvPrefix, err)
		}
		cfg.AllowInsecure = b
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("%sTIMEOUT must be positive, got %s", EnvPrefix, v)
		}
		cfg.Timeout = d
	}
	if v, ok := get("ROLE"); ok {
		cfg.Role = domain.Role(v)
	}
	if v, ok := get("SCOPES"); ok {
		cfg.Scopes = SplitList(v)
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("MQTT_BROKER"); ok {
		cfg.MQTTBroker = v
	}
	if v, ok := get("MQTT_TOPIC_PREFIX"); ok {
		cfg.MQTTTopicPrefix = v
	}
	if v, ok := get("MQTT_USERNAME"); ok {
		cfg.MQTTUsername = v
	}
	if v, ok := lookup(EnvPrefix + "MQTT_PASSWORD"); ok {
		cfg.MQTTPassword = v
	}
	return cfg, nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ResolveHome fills in the default home directory and creates it.
func (c *Config) ResolveHome() error {
	if c.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.Home = filepath.Join(dir, defaultHomeDir)
	}
	return os.MkdirAll(c.Home, 0o700)
}
