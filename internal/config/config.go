package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries runtime options for snapmon.
type Config struct {
	Interval   time.Duration `yaml:"interval"`
	Sort       string        `yaml:"sort"`
	Filter     string        `yaml:"filter"`
	JSON       bool          `yaml:"-"`
	JSONStream bool          `yaml:"-"`

	Serve       bool          `yaml:"serve"`
	Addr        string        `yaml:"addr"`
	Token       string        `yaml:"token"`
	CallTimeout time.Duration `yaml:"call_timeout"`

	Theme       string `yaml:"theme"`
	LogLevel    int    `yaml:"log_level"`
	Development bool   `yaml:"development"`
}

var (
	SortColumns = []string{"cpu", "mem", "name", "pid"}
	Themes      = []string{"slate", "midnight", "bumblebee"}
)

func Default() Config {
	return Config{
		Interval:    time.Second,
		Sort:        "cpu",
		Filter:      "",
		Addr:        "127.0.0.1:9120",
		CallTimeout: 2 * time.Second,
		Theme:       "slate",
	}
}

// Load overlays the YAML file at path onto the defaults. A missing file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// FromFlags loads the file named by -config, then applies flags and
// environment overrides, in that order of precedence (env wins).
func FromFlags(args []string) (Config, error) {
	var path string
	pre := flag.NewFlagSet("snapmon", flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	pre.StringVar(&path, "config", os.Getenv("SNAPMON_CONFIG"), "")
	_ = pre.Parse(filterConfigArg(args))

	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}

	fs := flag.NewFlagSet("snapmon", flag.ContinueOnError)
	fs.String("config", path, "path to a YAML config file")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "refresh interval")
	fs.StringVar(&cfg.Sort, "sort", cfg.Sort, "sort column: cpu|mem|name|pid")
	fs.StringVar(&cfg.Filter, "filter", cfg.Filter, "regex filter for process names")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "output one-shot JSON and exit")
	fs.BoolVar(&cfg.JSONStream, "json-stream", cfg.JSONStream, "stream NDJSON until interrupted")
	fs.BoolVar(&cfg.Serve, "serve", cfg.Serve, "serve the request/response API instead of the dashboard")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address for -serve")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "bearer token required by -serve (empty disables auth)")
	fs.DurationVar(&cfg.CallTimeout, "call-timeout", cfg.CallTimeout, "how long a request waits for the engine")
	fs.StringVar(&cfg.Theme, "theme", cfg.Theme, "dashboard theme: slate|midnight|bumblebee")
	fs.IntVar(&cfg.LogLevel, "v", cfg.LogLevel, "log verbosity")
	fs.BoolVar(&cfg.Development, "dev", cfg.Development, "human-readable development logging")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if v := os.Getenv("SNAPMON_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Interval = parsed
		} else if parsed, err2 := time.ParseDuration(v + "s"); err2 == nil {
			cfg.Interval = parsed
		}
	}
	if v := os.Getenv("SNAPMON_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SNAPMON_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("SNAPMON_THEME"); v != "" {
		cfg.Theme = v
	}
	return cfg, cfg.Validate()
}

// Validate rejects option values the rest of the program cannot honor.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if !slices.Contains(SortColumns, c.Sort) {
		return fmt.Errorf("unknown sort column %q", c.Sort)
	}
	if !slices.Contains(Themes, c.Theme) {
		return fmt.Errorf("unknown theme %q", c.Theme)
	}
	if c.Filter != "" {
		if _, err := regexp.Compile(c.Filter); err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}
	}
	if c.JSON && c.JSONStream {
		return errors.New("-json and -json-stream are mutually exclusive")
	}
	return nil
}

// filterConfigArg keeps only -config so the first pass does not trip over
// flags it does not define.
func filterConfigArg(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-config" || a == "--config":
			out = append(out, a)
			if i+1 < len(args) {
				out = append(out, args[i+1])
				i++
			}
		case strings.HasPrefix(a, "-config=") || strings.HasPrefix(a, "--config="):
			out = append(out, a)
		}
	}
	return out
}
