package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/codegen"
	"github.com/okapi-tools/okapi/internal/logging"
	"github.com/okapi-tools/okapi/internal/pathutil"
	"github.com/okapi-tools/okapi/internal/store"
)

// Environment variables read on startup, from the process or a .env file in
// the working directory.
const (
	EnvBaseDir   = "OKAPI_BASEDIR"
	EnvLogLevel  = "OKAPI_LOG_LEVEL"
	EnvLogFormat = "OKAPI_LOG_FORMAT"
	EnvLogFile   = "OKAPI_LOG_FILE"
	EnvSentryDSN = "OKAPI_SENTRY_DSN"
	EnvEnv       = "OKAPI_ENV"
)

var envFile = ".env"

// Config holds the settings shared by every command after merging
// defaults, environment, config file and flags, in that order.
type Config struct {
	BaseDir     string
	LogLevel    string
	LogFormat   string
	LogFile     string
	SentryDSN   string
	Environment string
	Trace       bool
	Verbose     bool
	ConfigPath  string

	// Generate applies to every document; Documents refines it for single
	// documents, keyed by storage name.
	Generate  DocumentSettings
	Documents map[string]DocumentSettings
}

// DocumentSettings are the generate defaults a config file can set, either
// for all documents or for one.
type DocumentSettings struct {
	Out       string
	Targets   []string
	Comments  *bool
	Endpoints []apidoc.EndpointRef
}

// over layers s on top of base; unset fields keep the base value.
func (s DocumentSettings) over(base DocumentSettings) DocumentSettings {
	if s.Out != "" {
		base.Out = s.Out
	}
	if len(s.Targets) > 0 {
		base.Targets = s.Targets
	}
	if s.Comments != nil {
		base.Comments = s.Comments
	}
	if len(s.Endpoints) > 0 {
		base.Endpoints = s.Endpoints
	}
	return base
}

// settingsFor returns the generate defaults for a document addressed by
// name, or by file when name is empty. A file matches by its stem, which is
// the storage name of a document exported from the store.
func (c *Config) settingsFor(name, file string) DocumentSettings {
	s := c.Generate
	key := pathutil.StorageName(name)
	if key == "" && file != "" {
		key = pathutil.StorageName(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
	}
	if doc, ok := c.Documents[key]; ok && key != "" {
		s = doc.over(s)
	}
	return s
}

func defaultConfig() Config {
	on := true
	return Config{
		LogLevel:  "warn",
		LogFormat: logging.FormatText,
		Generate: DocumentSettings{
			Out:      ".",
			Targets:  []string{codegen.TargetText},
			Comments: &on,
		},
	}
}

// setting binds a string field of Config to its environment variable and,
// when it has one, its global flag.
type setting struct {
	env  string
	flag string
	dst  func(*Config) *string
}

var settings = []setting{
	{EnvBaseDir, "basedir", func(c *Config) *string { return &c.BaseDir }},
	{EnvLogLevel, "log-level", func(c *Config) *string { return &c.LogLevel }},
	{EnvLogFormat, "log-format", func(c *Config) *string { return &c.LogFormat }},
	{EnvLogFile, "log-file", func(c *Config) *string { return &c.LogFile }},
	{EnvSentryDSN, "", func(c *Config) *string { return &c.SentryDSN }},
	{EnvEnv, "", func(c *Config) *string { return &c.Environment }},
}

func resolveConfig(cmd *cobra.Command) (*Config, error) {
	cfg := defaultConfig()

	env, err := readEnv(envFile)
	if err != nil {
		return nil, err
	}
	for _, s := range settings {
		if v := strings.TrimSpace(env[s.env]); v != "" {
			*s.dst(&cfg) = v
		}
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path = strings.TrimSpace(path); path != "" {
		cfg.ConfigPath = path
		if err := applyConfigFromFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyFlags(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// readEnv merges the .env file, if any, with the process environment. The
// process wins.
func readEnv(path string) (map[string]string, error) {
	env := map[string]string{}
	if path != "" {
		fromFile, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, newUsageError(fmt.Sprintf("read %s: %v", path, err))
		}
		if err == nil {
			env = fromFile
		}
	}
	for _, s := range settings {
		if v := os.Getenv(s.env); v != "" {
			env[s.env] = v
		}
	}
	return env, nil
}

func applyFlags(flags *pflag.FlagSet, cfg *Config) error {
	for _, s := range settings {
		if s.flag == "" || !flags.Changed(s.flag) {
			continue
		}
		v, err := flags.GetString(s.flag)
		if err != nil {
			return err
		}
		*s.dst(cfg) = strings.TrimSpace(v)
	}
	var err error
	if flags.Changed("trace") {
		if cfg.Trace, err = flags.GetBool("trace"); err != nil {
			return err
		}
	}
	if flags.Changed("verbose") {
		if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
			return err
		}
	}
	return nil
}

// finish fills in the base dir and checks the logging settings.
func (c *Config) finish() error {
	if c.BaseDir = strings.TrimSpace(c.BaseDir); c.BaseDir == "" {
		dir, err := store.DefaultBaseDir()
		if err != nil {
			return err
		}
		c.BaseDir = dir
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return newUsageError(err.Error())
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		return newUsageError(fmt.Sprintf("unsupported log format %q (allowed: %s, %s)", c.LogFormat, logging.FormatText, logging.FormatJSON))
	}
	return nil
}

// configFile is the on-disk shape of --config. Unknown keys are rejected.
type configFile struct {
	BaseDir string `yaml:"basedir"`
	Log     struct {
		Level       string `yaml:"level"`
		Format      string `yaml:"format"`
		File        string `yaml:"file"`
		SentryDSN   string `yaml:"sentry_dsn"`
		Environment string `yaml:"environment"`
	} `yaml:"log"`
	Trace     *bool                       `yaml:"trace"`
	Verbose   *bool                       `yaml:"verbose"`
	Generate  documentSection             `yaml:"generate"`
	Documents map[string]*documentSection `yaml:"documents"`
}

type documentSection struct {
	Out       string   `yaml:"out"`
	Targets   nameList `yaml:"targets"`
	Comments  *bool    `yaml:"comments"`
	Endpoints []string `yaml:"endpoints"`
}

// nameList accepts either a YAML sequence or one comma-separated string.
type nameList []string

func (l *nameList) UnmarshalYAML(n *yaml.Node) error {
	var items []string
	switch n.Kind {
	case yaml.ScalarNode:
		items = strings.Split(n.Value, ",")
	case yaml.SequenceNode:
		if err := n.Decode(&items); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: expected a list of names", n.Line)
	}
	*l = cleanList(items, true)
	return nil
}

func (s *documentSection) settings(at string) (DocumentSettings, error) {
	out := DocumentSettings{
		Out:      strings.TrimSpace(s.Out),
		Targets:  s.Targets,
		Comments: s.Comments,
	}
	for _, t := range out.Targets {
		if _, ok := codegen.Lookup(t); !ok {
			return out, fmt.Errorf("%s.targets: unsupported target %q (allowed: %s)", at, t, strings.Join(codegen.Targets(), ", "))
		}
	}
	for _, raw := range cleanList(s.Endpoints, false) {
		ref, err := apidoc.ParseEndpointRef(raw)
		if err != nil {
			return out, fmt.Errorf("%s.endpoints: %w", at, err)
		}
		out.Endpoints = append(out.Endpoints, ref)
	}
	return out, nil
}

func applyConfigFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}
	defer f.Close()

	var file configFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return newUsageError(fmt.Sprintf("config file %q: %v", path, err))
	}

	for dst, v := range map[*string]string{
		&cfg.BaseDir:     file.BaseDir,
		&cfg.LogLevel:    file.Log.Level,
		&cfg.LogFormat:   file.Log.Format,
		&cfg.LogFile:     file.Log.File,
		&cfg.SentryDSN:   file.Log.SentryDSN,
		&cfg.Environment: file.Log.Environment,
	} {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	if file.Trace != nil {
		cfg.Trace = *file.Trace
	}
	if file.Verbose != nil {
		cfg.Verbose = *file.Verbose
	}

	all, err := file.Generate.settings("generate")
	if err != nil {
		return newUsageError(fmt.Sprintf("config file %q: %v", path, err))
	}
	cfg.Generate = all.over(cfg.Generate)

	names := make([]string, 0, len(file.Documents))
	for name := range file.Documents {
		names = append(names, name)
	}
	sort.Strings(names)
	owner := map[string]string{}
	for _, name := range names {
		key := pathutil.StorageName(name)
		if key == "" {
			return newUsageError(fmt.Sprintf("config file %q: documents: empty document name", path))
		}
		if prev, dup := owner[key]; dup {
			return newUsageError(fmt.Sprintf("config file %q: documents %q and %q name the same document", path, prev, name))
		}
		owner[key] = name
		sec := file.Documents[name]
		if sec == nil {
			sec = &documentSection{}
		}
		s, err := sec.settings("documents." + name)
		if err != nil {
			return newUsageError(fmt.Sprintf("config file %q: %v", path, err))
		}
		if cfg.Documents == nil {
			cfg.Documents = map[string]DocumentSettings{}
		}
		cfg.Documents[key] = s
	}
	return nil
}

// cleanList trims entries and drops blanks and repeats, keeping the first
// occurrence. With fold set, entries are lower-cased first.
func cleanList(items []string, fold bool) []string {
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if fold {
			item = strings.ToLower(item)
		}
		if item != "" && !slices.Contains(out, item) {
			out = append(out, item)
		}
	}
	return out
}

// overlap lists the entries of b that also appear in a, in b's order.
func overlap(a, b []string) []string {
	var out []string
	for _, item := range b {
		if slices.Contains(a, item) {
			out = append(out, item)
		}
	}
	return out
}
