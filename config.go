package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the application configuration
type Config struct {
	// Port is the path to the module's serial port (e.g. "/dev/ttyUSB0")
	Port string
	// Baud is the baud rate for serial communication (module default 9600)
	Baud int
	// Model is a caller-supplied model identifier used instead of detecting
	// one over the serial link; only meaningful for compiling
	Model string
	// NoReset skips toggling the DTR line as a reset
	NoReset bool
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// CodesPath locates the error code description table
	CodesPath string
	// DevicesPath locates the devices.json catalogue for the online compiler
	DevicesPath string
	// CompileURL is the online compile service endpoint
	CompileURL string
	// CompilerDir is where local XComp executables live
	CompilerDir string
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values. The error code table,
// device catalogue and XComp executables are looked for next to the running
// executable.
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		base := "."
		if exe, err := os.Executable(); err == nil {
			base = filepath.Dir(exe)
		}
		c.Baud = 9600
		c.LogLevel = "info"
		c.CodesPath = filepath.Join(base, "codes.csv")
		c.DevicesPath = filepath.Join(base, "devices.json")
		c.CompileURL = "http://uwterminalx.no-ip.org/xcompile.php?JSON=1"
		c.CompilerDir = base
		return nil
	}
}

// fileConfig maps blutil.toml keys onto the runtime configuration.
type fileConfig struct {
	Port        string `toml:"port"`
	Baud        int    `toml:"baud"`
	Model       string `toml:"model"`
	NoReset     bool   `toml:"no_reset"`
	LogLevel    string `toml:"log_level"`
	CodesPath   string `toml:"codes_path"`
	DevicesPath string `toml:"devices_path"`
	CompileURL  string `toml:"compile_url"`
	CompilerDir string `toml:"compiler_dir"`
}

// WithFile overlays configuration from a TOML file. An empty path is a
// no-op; a named file must exist and parse.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}

		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}

		if meta.IsDefined("port") {
			c.Port = strings.TrimSpace(raw.Port)
		}
		if meta.IsDefined("baud") {
			c.Baud = raw.Baud
		}
		if meta.IsDefined("model") {
			c.Model = strings.TrimSpace(raw.Model)
		}
		if meta.IsDefined("no_reset") {
			c.NoReset = raw.NoReset
		}
		if meta.IsDefined("log_level") {
			c.LogLevel = strings.TrimSpace(raw.LogLevel)
		}
		if meta.IsDefined("codes_path") {
			c.CodesPath = raw.CodesPath
		}
		if meta.IsDefined("devices_path") {
			c.DevicesPath = raw.DevicesPath
		}
		if meta.IsDefined("compile_url") {
			c.CompileURL = raw.CompileURL
		}
		if meta.IsDefined("compiler_dir") {
			c.CompilerDir = raw.CompilerDir
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if port := os.Getenv("BLUTIL_PORT"); port != "" {
			c.Port = port
		}

		if baud := os.Getenv("BLUTIL_BAUD"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.Baud = b
			}
		}

		if model := os.Getenv("BLUTIL_MODEL"); model != "" {
			c.Model = model
		}

		if level := os.Getenv("BLUTIL_LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if codes := os.Getenv("BLUTIL_CODES"); codes != "" {
			c.CodesPath = codes
		}

		if devices := os.Getenv("BLUTIL_DEVICES"); devices != "" {
			c.DevicesPath = devices
		}

		if url := os.Getenv("BLUTIL_COMPILE_URL"); url != "" {
			c.CompileURL = url
		}

		if dir := os.Getenv("BLUTIL_COMPILER_DIR"); dir != "" {
			c.CompilerDir = dir
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "p", "port":
				c.Port = f.Value.String()
			case "b", "baud":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.Baud = b
				}
			case "m", "model":
				c.Model = f.Value.String()
			case "no-dtr":
				c.NoReset = f.Value.String() == "true"
			case "log-level":
				c.LogLevel = f.Value.String()
			}

		})
		return nil
	}

}
