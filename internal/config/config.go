// Package config loads the orchestrator configuration.
//
// A configuration document is YAML, JSON or CUE. Every document is checked
// against the embedded #Config schema before it is used, so an unknown key,
// a malformed fingerprint or a bad timeout fails the load instead of the
// run.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSrc string

// DefaultFeatureSpec is used when stage1.featureSpec is not set.
const DefaultFeatureSpec = "features"

// ErrInvalidConfig wraps every load and validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Target describes the service under test.
type Target struct {
	Endpoint string            `yaml:"endpoint" json:"endpoint"`
	Headers  map[string]string `yaml:"headers" json:"headers,omitempty"`
	Timeout  string            `yaml:"timeout" json:"timeout"`
}

// Diagnostics toggles the optional report sections.
type Diagnostics struct {
	RequestCount bool `yaml:"requestCount" json:"requestCount"`
	StepHash     bool `yaml:"stepHash" json:"stepHash"`
}

// Stage1 holds the feature selection and pending markers.
type Stage1 struct {
	FeatureSpec  string              `yaml:"featureSpec" json:"featureSpec"`
	Pending      map[string][]string `yaml:"pending" json:"pending,omitempty"`
	StalePending bool                `yaml:"stalePending" json:"stalePending"`
	// FeatureSpecFromCLI lets a wrapper that already narrowed the feature
	// spec mark the document as such.
	FeatureSpecFromCLI bool `yaml:"_featureSpecFromCLI" json:"_featureSpecFromCLI,omitempty"`
}

// History configures the run history database.
type History struct {
	Database string `yaml:"database" json:"database"`
}

// Config is a loaded configuration.
type Config struct {
	Target      Target      `yaml:"target" json:"target"`
	Diagnostics Diagnostics `yaml:"diagnostics" json:"diagnostics"`
	Stage1      Stage1      `yaml:"stage1" json:"stage1"`
	Bail        bool        `yaml:"bail" json:"bail"`
	Grep        string      `yaml:"grep" json:"grep"`
	History     History     `yaml:"history" json:"history"`

	// FeatureSpecFromCLI is set when the feature spec came from a flag,
	// or the document sets stage1._featureSpecFromCLI.
	FeatureSpecFromCLI bool `yaml:"-" json:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Stage1: Stage1{FeatureSpec: DefaultFeatureSpec}}
}

// Load reads, validates and normalizes the document at path. An empty
// path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var cfg *Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		cfg, err = decodeYAML(data)
	case ".cue":
		cfg, err = decodeCUE(data, path)
	default:
		err = fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	cfg.normalize()
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// decodeYAML strictly decodes YAML or JSON, then validates the result
// against the schema.
func decodeYAML(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// An empty document decodes to the zero config.
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse: %w", err)
		}
	}

	ctx := cuecontext.New()
	if err := validate(ctx, ctx.Encode(&cfg)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeCUE(data []byte, path string) (*Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile: %s", cueerrors.Details(err, nil))
	}
	if err := validate(ctx, v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &cfg, nil
}

// validate unifies v with #Config and requires the result to be concrete.
func validate(ctx *cue.Context, v cue.Value) error {
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// normalize fills defaults and appends the trailing slash endpoint
// resolution relies on.
func (c *Config) normalize() {
	if c.Stage1.FeatureSpec == "" {
		c.Stage1.FeatureSpec = DefaultFeatureSpec
	}
	if c.Stage1.FeatureSpecFromCLI {
		c.FeatureSpecFromCLI = true
	}
	if c.Target.Endpoint != "" && !strings.HasSuffix(c.Target.Endpoint, "/") {
		c.Target.Endpoint += "/"
	}
}

// check covers what the schema cannot express.
func (c *Config) check() error {
	if _, err := c.GrepPattern(); err != nil {
		return err
	}
	if c.Target.Timeout != "" {
		if _, err := time.ParseDuration(c.Target.Timeout); err != nil {
			return fmt.Errorf("target.timeout: %w", err)
		}
	}
	return nil
}

// RequestTimeout returns target.timeout, or zero when unset.
func (c *Config) RequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Target.Timeout)
	return d
}

// GrepPattern compiles the grep filter. It returns nil when no filter is
// set.
func (c *Config) GrepPattern() (*regexp.Regexp, error) {
	if c.Grep == "" {
		return nil, nil
	}
	re, err := regexp.Compile(c.Grep)
	if err != nil {
		return nil, fmt.Errorf("grep: %w", err)
	}
	return re, nil
}

// Overrides are the command-line settings layered over a document.
// Zero values leave the document untouched.
type Overrides struct {
	Diagnostics  bool
	RequestCount bool
	StepHash     bool
	FeatureSpec  string
	Bail         bool
	Grep         string
	Database     string
}

// Apply layers o over c. Enabling diagnostics globally turns on every
// diagnostic, stale pending checks included.
func (c *Config) Apply(o Overrides) error {
	if o.Diagnostics {
		c.Diagnostics.RequestCount = true
		c.Diagnostics.StepHash = true
		c.Stage1.StalePending = true
	}
	if o.RequestCount {
		c.Diagnostics.RequestCount = true
	}
	if o.StepHash {
		c.Diagnostics.StepHash = true
	}
	if o.FeatureSpec != "" {
		c.Stage1.FeatureSpec = o.FeatureSpec
		c.FeatureSpecFromCLI = true
	}
	if o.Bail {
		c.Bail = true
	}
	if o.Grep != "" {
		c.Grep = o.Grep
	}
	if o.Database != "" {
		c.History.Database = o.Database
	}
	if err := c.check(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
