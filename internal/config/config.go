// Package config loads the limits of the virtual machine from an optional
// TOML file, overridden by TARN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/mna/tarn/lang/machine"
)

// EnvPrefix is the prefix of the environment variables that override the
// configuration file.
const EnvPrefix = "TARN_"

// Config configures the thread that executes a module.
type Config struct {
	MaxSteps          int  `toml:"max-steps" env:"MAX_STEPS"`
	MaxCallStackDepth int  `toml:"max-call-stack-depth" env:"MAX_CALL_STACK_DEPTH"`
	StackSize         int  `toml:"stack-size" env:"STACK_SIZE"`
	Trace             bool `toml:"trace" env:"TRACE"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{StackSize: machine.DefaultStackSize}
}

// Load returns the configuration read from the TOML file at path, if path is
// not empty, with the environment variables applied on top.
func Load(path string) (Config, error) {
	return load(path, nil)
}

// load is Load with an explicit environment, the process' environment is
// used if environ is nil.
func load(path string, environ map[string]string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("cannot read %s: %w", path, err)
		}
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("parse error in %s: %w", path, err)
		}
		if keys := md.Undecoded(); len(keys) > 0 {
			return cfg, fmt.Errorf("parse error in %s: unknown key %s", path, keys[0])
		}
	}

	if err := env.Parse(&cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate returns an error if the configuration is invalid.
func (c Config) Validate() error {
	if c.StackSize < 0 {
		return errors.New("stack-size must not be negative")
	}
	return nil
}

// Apply sets the limits of the configuration on th.
func (c Config) Apply(th *machine.Thread) {
	th.MaxSteps = c.MaxSteps
	th.MaxCallStackDepth = c.MaxCallStackDepth
	th.StackSize = c.StackSize
}
