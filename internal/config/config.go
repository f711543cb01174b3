// Package config loads the YAML configuration of the mathdown CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-mathdown/internal/fileutil"
	"github.com/alnah/go-mathdown/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// appDir is the directory under the user config dir searched for names.
const appDir = "go-mathdown"

// Field length limits.
const (
	MaxPathLength        = 4096
	MaxStyleLength       = 100
	MaxTitleLength       = 200
	MaxClassLength       = 100
	MaxPageSizeLength    = 10 // "letter", "a4", "legal"
	MaxOrientationLength = 10 // "portrait", "landscape"
	MaxMacros            = 200
	MaxMacroLength       = 500
)

// Output formats.
const (
	FormatFragment = "fragment"
	FormatHTML     = "html"
	FormatPDF      = "pdf"
)

// Config holds all configuration of a conversion run.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Typeset   TypesetConfig   `yaml:"typeset"`
	Tables    TablesConfig    `yaml:"tables"`
	CSS       CSSConfig       `yaml:"css"`
	Assets    AssetsConfig    `yaml:"assets"`
	Page      PageConfig      `yaml:"page"`
	Workers   int             `yaml:"workers"` // 0 = auto
}

// InputConfig defines input source options.
type InputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Default input directory (empty = must specify)
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Empty = next to the source
	Format     string `yaml:"format"`     // "fragment", "html", "pdf" (default: "html")
	Title      string `yaml:"title"`      // Document title (empty = file name)
}

// NormalizeConfig turns off text normalization steps.
type NormalizeConfig struct {
	DisableMarkup bool `yaml:"disableMarkup"` // Keep stray ** markers
	DisableMath   bool `yaml:"disableMath"`   // Keep sqrt(x), a^b, a/b as written
}

// TypesetConfig defines math typesetting options.
type TypesetConfig struct {
	Disabled bool              `yaml:"disabled"` // Leave math as source text
	Macros   map[string]string `yaml:"macros"`   // TeX macro name -> expansion
}

// TablesConfig overrides the classes added to table markup.
type TablesConfig struct {
	Table string `yaml:"table"`
	Head  string `yaml:"head"`
	Body  string `yaml:"body"`
	Row   string `yaml:"row"`
	Cell  string `yaml:"cell"`
}

// CSSConfig defines stylesheet options.
type CSSConfig struct {
	Style string `yaml:"style"` // Style name or path to a .css file (empty = default)
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Directory with styles/NAME.css; empty = embedded only
}

// PageConfig defines PDF page settings.
type PageConfig struct {
	Size        string  `yaml:"size"`        // "letter", "a4", "legal" (default: "letter")
	Orientation string  `yaml:"orientation"` // "portrait", "landscape" (default: "portrait")
	Margin      float64 `yaml:"margin"`      // inches (default: 0.5)
}

// Validate checks lengths, enums and ranges.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("input.defaultDir", c.Input.DefaultDir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.defaultDir", c.Output.DefaultDir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.title", c.Output.Title, MaxTitleLength); err != nil {
		return err
	}
	switch strings.ToLower(c.Output.Format) {
	case "", FormatFragment, FormatHTML, FormatPDF:
	default:
		return fmt.Errorf("%w: output.format %q (must be fragment, html, or pdf)", ErrInvalidValue, c.Output.Format)
	}

	if err := c.Typeset.validate(); err != nil {
		return err
	}

	tableFields := map[string]string{
		"tables.table": c.Tables.Table,
		"tables.head":  c.Tables.Head,
		"tables.body":  c.Tables.Body,
		"tables.row":   c.Tables.Row,
		"tables.cell":  c.Tables.Cell,
	}
	for name, value := range tableFields {
		if err := validateFieldLength(name, value, MaxClassLength); err != nil {
			return err
		}
		if strings.ContainsAny(value, "\"<>") {
			return fmt.Errorf("%w: %s contains a quote or angle bracket", ErrInvalidValue, name)
		}
	}

	styleLimit := MaxStyleLength
	if fileutil.IsFilePath(c.CSS.Style) {
		styleLimit = MaxPathLength
	}
	if err := validateFieldLength("css.style", c.CSS.Style, styleLimit); err != nil {
		return err
	}
	if err := validateFieldLength("assets.basePath", c.Assets.BasePath, MaxPathLength); err != nil {
		return err
	}

	if err := validateFieldLength("page.size", c.Page.Size, MaxPageSizeLength); err != nil {
		return err
	}
	if err := validateFieldLength("page.orientation", c.Page.Orientation, MaxOrientationLength); err != nil {
		return err
	}
	if c.Page.Margin < 0 {
		return fmt.Errorf("%w: page.margin must not be negative, got %.2f", ErrInvalidValue, c.Page.Margin)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidValue, c.Workers)
	}
	return nil
}

func (t *TypesetConfig) validate() error {
	if len(t.Macros) > MaxMacros {
		return fmt.Errorf("%w: typeset.macros has %d entries (max %d)", ErrInvalidValue, len(t.Macros), MaxMacros)
	}
	for name, body := range t.Macros {
		if name == "" {
			return fmt.Errorf("%w: typeset.macros has an empty name", ErrInvalidValue)
		}
		if err := validateFieldLength("typeset.macros."+name, body, MaxMacroLength); err != nil {
			return err
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns a configuration that keeps every library default.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{Format: FormatHTML},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths returns the files LoadConfig tries for a config name, in order.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, appDir, name+ext))
		}
	}
	return paths
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries the current directory, then the user config directory, .yaml before .yml.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
