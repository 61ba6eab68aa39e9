package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/kolah/spectest/internal/loader"
	"github.com/spf13/cobra"
)

const (
	DefaultConfigFile    = "spectest.yaml"
	DefaultNamespace     = "feature"
	DefaultTestsDir      = "tests"
	DefaultRuntimeImport = "github.com/kolah/spectest/spectator"
)

type Config struct {
	OpenAPIPath           string         `koanf:"openapi-path"`
	Namespace             string         `koanf:"namespace"`
	TestsDir              string         `koanf:"tests-dir"`
	RuntimeImport         string         `koanf:"runtime-import"`
	Templates             TemplateConfig `koanf:"templates"`
	AdditionalInitialisms []string       `koanf:"additional-initialisms"`
	TestNameWithPath      bool           `koanf:"test-name-with-path"`
	Tags                  bool           `koanf:"tags"`
	Force                 bool           `koanf:"force"`
	Append                bool           `koanf:"append"`
	DryRun                bool           `koanf:"dry-run"`
}

type TemplateConfig struct {
	Dir string `koanf:"dir"`
}

// environment holds the settings that may come from the process environment.
type environment struct {
	OpenAPIPath  string `env:"SPECTEST_OPENAPI_PATH"`
	Namespace    string `env:"SPECTEST_NAMESPACE"`
	TestsDir     string `env:"SPECTEST_TESTS_DIR"`
	TemplatesDir string `env:"SPECTEST_TEMPLATES_DIR"`
}

// BindFlags registers the flags read by Load.
func BindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringP("config", "c", "", "Config file path (default: spectest.yaml)")
	flags.String("openapi-path", "", "OpenAPI document path (json/yaml)")
	flags.String("namespace", "", "Package directory below the tests directory (default: feature)")
	flags.String("tests-dir", "", "Root directory for generated tests (default: tests)")
	flags.String("templates", "", "Custom templates directory")
	flags.StringSlice("additional-initialisms", nil, "Additional initialisms used in test names")
	flags.Bool("force", false, "Overwrite the test file if it already exists")
	flags.Bool("append", false, "Append test functions to the test file if it already exists")
	flags.Bool("tags", false, "Treat arguments as tags instead of API paths")
	flags.Bool("test-name-with-path", false, "Name tests after path, method and status instead of operationId")
	flags.Bool("dry-run", false, "Print output without writing files")
}

// Load merges, from lowest to highest precedence: built-in defaults, the
// config file, SPECTEST_* environment variables and command-line flags.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"namespace":      DefaultNamespace,
		"tests-dir":      DefaultTestsDir,
		"runtime-import": DefaultRuntimeImport,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			configFile = DefaultConfigFile
		}
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	envMap, err := buildEnvMap()
	if err != nil {
		return nil, err
	}
	if len(envMap) > 0 {
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
	}

	flagsMap := buildFlagsMap(cmd)
	if len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func buildEnvMap() (map[string]any, error) {
	var e environment
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	m := make(map[string]any)
	if e.OpenAPIPath != "" {
		m["openapi-path"] = e.OpenAPIPath
	}
	if e.Namespace != "" {
		m["namespace"] = e.Namespace
	}
	if e.TestsDir != "" {
		m["tests-dir"] = e.TestsDir
	}
	if e.TemplatesDir != "" {
		m["templates.dir"] = e.TemplatesDir
	}
	return m, nil
}

func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)
	flags := cmd.Flags()

	getString := func(name string) string {
		if !flags.Changed(name) {
			return ""
		}
		v, _ := flags.GetString(name)
		return v
	}

	for flag, key := range map[string]string{
		"openapi-path": "openapi-path",
		"tests-dir":    "tests-dir",
		"templates":    "templates.dir",
	} {
		if v := getString(flag); v != "" {
			m[key] = v
		}
	}

	// namespace may be set to "" explicitly to write into the tests root
	if flags.Changed("namespace") {
		m["namespace"] = getString("namespace")
	}

	if v, err := flags.GetStringSlice("additional-initialisms"); err == nil && len(v) > 0 {
		m["additional-initialisms"] = v
	}

	for _, name := range []string{"force", "append", "tags", "test-name-with-path", "dry-run"} {
		if flags.Changed(name) {
			v, _ := flags.GetBool(name)
			m[name] = v
		}
	}

	return m
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.OpenAPIPath) == "" {
		return fmt.Errorf("%w: set SPECTEST_OPENAPI_PATH, openapi-path in %s or --openapi-path", loader.ErrNoSpecPath, DefaultConfigFile)
	}
	if c.TestsDir == "" {
		return fmt.Errorf("tests directory is required")
	}
	if c.RuntimeImport == "" {
		return fmt.Errorf("runtime import path is required")
	}
	for _, segment := range strings.FieldsFunc(c.Namespace, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return fmt.Errorf("invalid namespace: %s (must not leave the tests directory)", c.Namespace)
		}
	}
	if c.Force && c.Append {
		return fmt.Errorf("--force and --append cannot be used together")
	}
	return nil
}
