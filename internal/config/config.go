package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkeller/modelharness/internal/logging"
)

const (
	EnvWorkDir   = "MODELHARNESS_WORK_DIR"
	EnvSchemaDir = "MODELHARNESS_SCHEMA_DIR"
	EnvLogLevel  = "MODELHARNESS_LOG_LEVEL"
	EnvDebug     = "MODELHARNESS_DEBUG"
	EnvHeadless  = "MODELHARNESS_HEADLESS"
	EnvPort      = "MODELHARNESS_PORT"
)

const (
	DefaultWorkDirName   = "harness-work"
	DefaultSchemaDirName = "schemas"
	DefaultPort          = 7831
)

type Config struct {
	WorkDir   string
	SchemaDir string
	LogLevel  logging.Level
	Debug     bool
	Headless  bool
	Port      int
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

func Get() *Config {
	configOnce.Do(func() {
		globalConfig = loadFromEnvironment()
	})
	return globalConfig
}

func Reset() {
	globalConfig = nil
	configOnce = sync.Once{}
}

func loadFromEnvironment() *Config {
	cfg := &Config{
		LogLevel: logging.LevelInfo,
		Debug:    false,
		Headless: true,
		Port:     DefaultPort,
	}

	if workDir := os.Getenv(EnvWorkDir); workDir != "" {
		cfg.WorkDir = workDir
	}

	if schemaDir := os.Getenv(EnvSchemaDir); schemaDir != "" {
		cfg.SchemaDir = schemaDir
	}

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		if level, err := logging.ParseLevel(logLevel); err == nil {
			cfg.LogLevel = level
		}
	}

	if debug := os.Getenv(EnvDebug); debug != "" {
		cfg.Debug = parseBool(debug)
		if cfg.Debug {
			cfg.LogLevel = logging.LevelDebug
		}
	}

	if headless := os.Getenv(EnvHeadless); headless != "" {
		cfg.Headless = parseBool(headless)
	}

	if port := os.Getenv(EnvPort); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 && p < 65536 {
			cfg.Port = p
		}
	}

	return cfg
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func (c *Config) ResolveWorkDir() string {
	if c.WorkDir != "" {
		return c.WorkDir
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	return filepath.Join(cwd, DefaultWorkDirName)
}

func (c *Config) ResolveSchemaDir() string {
	if c.SchemaDir != "" {
		return c.SchemaDir
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	defaultPath := filepath.Join(cwd, DefaultSchemaDirName)
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	return ""
}

func GetEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func GetEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return parseBool(val)
	}
	return defaultVal
}

func GetEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
