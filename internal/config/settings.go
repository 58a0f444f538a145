package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Settings is the engine configuration read from oscript.yaml or oscript.toml.
type Settings struct {
	Preprocessor PreprocessorSettings `yaml:"preprocessor" toml:"preprocessor"`
	Compiler     CompilerSettings     `yaml:"compiler" toml:"compiler"`
	Machine      MachineSettings      `yaml:"machine" toml:"machine"`
	Cache        CacheSettings        `yaml:"cache" toml:"cache"`
	Log          LogSettings          `yaml:"log" toml:"log"`

	// Locale selects the language of diagnostics: "ru" or "en".
	Locale string `yaml:"locale" toml:"locale"`

	// Path is the file the settings were read from (empty for defaults).
	Path string `yaml:"-" toml:"-"`
}

type PreprocessorSettings struct {
	// Defines are symbols visible to #Если / #If directives.
	Defines []string `yaml:"defines" toml:"defines"`
}

type CompilerSettings struct {
	// DebugCode makes the compiler emit a line marker for every statement.
	DebugCode bool `yaml:"debug_code" toml:"debug_code"`
	// CodeStat enables per-line hit counters.
	CodeStat bool `yaml:"code_stat" toml:"code_stat"`
}

type MachineSettings struct {
	MaxCallDepth int  `yaml:"max_call_depth" toml:"max_call_depth"`
	Trace        bool `yaml:"trace" toml:"trace"`
}

type CacheSettings struct {
	// Expressions is the size of the Evaluate/Execute compile cache.
	Expressions int `yaml:"expressions" toml:"expressions"`
	// ImageDB is the SQLite file for compiled images. Empty disables it.
	ImageDB string `yaml:"image_db" toml:"image_db"`
}

type LogSettings struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // auto, console, json
}

// Default returns settings that work without any file.
func Default() *Settings {
	return &Settings{
		Machine: MachineSettings{MaxCallDepth: DefaultMaxCallDepth},
		Cache:   CacheSettings{Expressions: DefaultExpressionCacheSize},
		Log:     LogSettings{Level: "warn", Format: "auto"},
		Locale:  "ru",
	}
}

// Load reads settings from path. The format is chosen by extension.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	s := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), s); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported settings format: %s", path)
	}

	s.Path = path
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Discover looks for a settings file in dir and loads it.
// Defaults are returned when no file exists.
func Discover(dir string) (*Settings, error) {
	for _, name := range SettingsFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// Validate fills zero values with defaults and rejects impossible ones.
func (s *Settings) Validate() error {
	if s.Machine.MaxCallDepth == 0 {
		s.Machine.MaxCallDepth = DefaultMaxCallDepth
	}
	if s.Machine.MaxCallDepth < 0 {
		return fmt.Errorf("machine.max_call_depth must be positive, got %d", s.Machine.MaxCallDepth)
	}
	if s.Cache.Expressions == 0 {
		s.Cache.Expressions = DefaultExpressionCacheSize
	}
	if s.Cache.Expressions < 0 {
		return fmt.Errorf("cache.expressions must be positive, got %d", s.Cache.Expressions)
	}
	switch strings.ToLower(s.Locale) {
	case "", "ru":
		s.Locale = "ru"
	case "en":
		s.Locale = "en"
	default:
		return fmt.Errorf("unknown locale %q", s.Locale)
	}
	if s.Cache.ImageDB != "" && s.Path != "" && !filepath.IsAbs(s.Cache.ImageDB) {
		s.Cache.ImageDB = filepath.Join(filepath.Dir(s.Path), s.Cache.ImageDB)
	}
	return nil
}
