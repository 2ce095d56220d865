package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/runfortran/internal/ir"
	"github.com/roach88/runfortran/internal/source"
)

const (
	// ConfigFileName is the config file looked up in the search directory.
	ConfigFileName = "run-fortran.cue"

	// EnvPrefix prefixes every environment variable, e.g. RUN_FORTRAN_SEPARATOR.
	EnvPrefix = "RUN_FORTRAN"

	// maxConfigSize bounds the config file read.
	maxConfigSize = 1 << 20
)

// Configuration keys.
const (
	KeyIntrinsics = "intrinsics"
	KeySeparator  = "separator"
	KeyExtensions = "extensions"
	KeyExclude    = "exclude"
)

//go:embed config_schema.cue
var configSchema string

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds the resolved settings of one invocation.
type Config struct {
	// Intrinsics are module names resolvable without a defining file.
	Intrinsics []string `json:"intrinsics" mapstructure:"intrinsics"`

	// Separator joins file paths in text output.
	Separator string `json:"separator" mapstructure:"separator"`

	// Extensions are the accepted source file extensions.
	Extensions []string `json:"extensions" mapstructure:"extensions"`

	// Exclude holds doublestar patterns skipped during discovery.
	Exclude []string `json:"exclude" mapstructure:"exclude"`
}

// DefaultConfig returns the built-in settings: the standard intrinsic
// modules (IEEE, ISO C/Fortran env, OpenMP, OpenACC), a single space
// separator and the usual Fortran extensions.
func DefaultConfig() *Config {
	return &Config{
		Intrinsics: []string{
			"ieee_arithmetic",
			"ieee_exceptions",
			"ieee_features",
			"iso_c_binding",
			"iso_fortran_env",
			"omp_lib",
			"omp_lib_kinds",
			"openacc",
		},
		Separator:  " ",
		Extensions: slices.Clone(source.DefaultExtensions),
		Exclude:    []string{},
	}
}

// IntrinsicSet returns the allowlist in the form the resolver expects.
func (c *Config) IntrinsicSet() ir.NameSet {
	return ir.NewNameSet(c.Intrinsics...)
}

// DiscoverOptions returns the file discovery settings.
func (c *Config) DiscoverOptions() source.DiscoverOptions {
	return source.DiscoverOptions{
		Extensions: slices.Clone(c.Extensions),
		Exclude:    slices.Clone(c.Exclude),
	}
}

// Validate checks constraints that hold regardless of where a value came
// from. The CUE schema covers the config file; env vars and flags are
// only checked here.
func (c *Config) Validate() error {
	for _, name := range c.Intrinsics {
		if !identRe.MatchString(name) {
			return fmt.Errorf("%w: intrinsic %q is not a Fortran identifier", ErrInvalidConfig, name)
		}
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("%w: at least one extension is required", ErrInvalidConfig)
	}
	for _, ext := range c.Extensions {
		if len(ext) < 2 || ext[0] != '.' || strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("%w: extension %q must look like \".f90\"", ErrInvalidConfig, ext)
		}
	}
	for _, pat := range c.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("%w: invalid exclude pattern %q", ErrInvalidConfig, pat)
		}
	}
	return nil
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFilePath is an explicit config file. When set it must exist.
	ConfigFilePath string

	// SearchDir is where ConfigFileName is looked up when ConfigFilePath
	// is empty. Empty means the working directory.
	SearchDir string

	// Flags are the parsed command-line flags. Only flags that were set
	// explicitly override lower layers.
	Flags *pflag.FlagSet

	// FlagNames maps configuration keys to flag names when they differ,
	// e.g. separator -> sep.
	FlagNames map[string]string
}

// Load resolves the configuration. It returns the config and the path of
// the config file used, empty when none was found.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault(KeyIntrinsics, defaults.Intrinsics)
	v.SetDefault(KeySeparator, defaults.Separator)
	v.SetDefault(KeyExtensions, defaults.Extensions)
	v.SetDefault(KeyExclude, defaults.Exclude)

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		candidate := filepath.Join(opts.SearchDir, ConfigFileName)
		if fileExists(candidate) {
			resolvedPath = candidate
		}
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", fmt.Errorf("loading config %s: %w", resolvedPath, err)
		}
	}

	bindEnv(v)
	if err := bindFlags(v, opts.Flags, opts.FlagNames); err != nil {
		return nil, "", err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

// bindEnv wires RUN_FORTRAN_* variables, e.g. RUN_FORTRAN_INTRINSICS.
// List values are comma-separated.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, names map[string]string) error {
	if flags == nil {
		return nil
	}
	for _, key := range []string{KeyIntrinsics, KeySeparator, KeyExtensions, KeyExclude} {
		name := key
		if alias, ok := names[key]; ok {
			name = alias
		}
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// normalize trims list entries and drops blanks. Env values arrive as one
// comma-separated string and are split by viper's decode hook.
func (c *Config) normalize() {
	c.Intrinsics = cleanList(c.Intrinsics)
	c.Extensions = cleanList(c.Extensions)
	c.Exclude = cleanList(c.Exclude)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema and merges its contents into v.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("config file is %d bytes, limit is %d", len(data), maxConfigSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, userValue.Err())
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
