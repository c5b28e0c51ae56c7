// Package config loads the sx configuration file.
//
// A config file is YAML. Unknown keys are rejected. Missing keys keep their
// defaults (see Default). The merged result is then checked against the
// embedded CUE schema, so a file that parses can still be refused, e.g. for
// a log level the logger does not know.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/host"
)

//go:embed schema.cue
var schemaSource string

// Store drivers.
const (
	DriverSQLite  = "sqlite"
	DriverLevelDB = "leveldb"
)

// Config is the complete sx configuration.
type Config struct {
	// ProgramID is the base58 program address records are derived under.
	// Empty means address.DefaultProgram.
	ProgramID string `yaml:"program_id" json:"program_id,omitempty"`

	Store   StoreConfig   `yaml:"store" json:"store"`
	Rent    host.Rent     `yaml:"rent" json:"rent"`
	Strict  bool          `yaml:"strict" json:"strict"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// StoreConfig selects and locates the record store.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`

	// Direct turns off batching on the leveldb host: every write lands
	// immediately and transitions are not atomic.
	Direct bool `yaml:"direct" json:"direct"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`

	// File, when set, sends logs to a rotated file instead of stderr.
	File       string `yaml:"file" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
}

// MetricsConfig configures where engine metrics go.
type MetricsConfig struct {
	// Textfile, when set, is rewritten with the command's Prometheus metrics
	// on exit, in the text format node_exporter's textfile collector reads.
	Textfile string `yaml:"textfile" json:"textfile,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   "sx.db",
		},
		Rent: host.DefaultRent(),
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}
	if _, err := c.Program(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Program returns the program address records are derived under.
func (c Config) Program() (address.Address, error) {
	if c.ProgramID == "" {
		return address.DefaultProgram, nil
	}
	program, err := address.Parse(c.ProgramID)
	if err != nil {
		return address.Address{}, fmt.Errorf("program_id: %w", err)
	}
	return program, nil
}
