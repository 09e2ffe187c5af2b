package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName names the per-user config and state directories.
const AppName = "annotate"

// ProjectFile is the per-dataset config file read from the working directory.
const ProjectFile = ".annotate.json"

// ProjectYAMLFile is read instead of ProjectFile when only it exists.
const ProjectYAMLFile = ".annotate.yaml"

// EnvFile is the optional dotenv file read from the working directory.
const EnvFile = ".env"

// Config holds all configurable annotate settings.
type Config struct {
	InputDir   string   `json:"input_dir" yaml:"input_dir"`
	OutputDir  string   `json:"output_dir" yaml:"output_dir"`
	Recursive  *bool    `json:"recursive,omitempty" yaml:"recursive,omitempty"`
	Extensions []string `json:"extensions" yaml:"extensions"`

	VisualDir  string `json:"visual_dir" yaml:"visual_dir"`
	LineWidth  int    `json:"line_width" yaml:"line_width"`
	BoxColor   string `json:"box_color" yaml:"box_color"` // "#rrggbb"
	WriteLabel *bool  `json:"write_label,omitempty" yaml:"write_label,omitempty"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		InputDir:   filepath.Join("data", "input"),
		OutputDir:  filepath.Join("data", "output"),
		Recursive:  boolPtr(false),
		Extensions: []string{".png", ".jpg", ".jpeg"},
		VisualDir:  filepath.Join("data", "visual_output"),
		LineWidth:  2,
		BoxColor:   "#00ff00",
		WriteLabel: boolPtr(true),
	}
}

// IsRecursive reports whether image discovery descends into subdirectories.
func (c Config) IsRecursive() bool { return c.Recursive != nil && *c.Recursive }

// WritesLabels reports whether rendered boxes get an "id:score" caption.
func (c Config) WritesLabels() bool { return c.WriteLabel == nil || *c.WriteLabel }

// GlobalPath is $XDG_CONFIG_HOME/annotate/config.json.
func GlobalPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.json")
}

// LoadGlobal reads the per-user config file.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	return loadFile(GlobalPath(), true)
}

// LoadProject reads .annotate.json, or failing that .annotate.yaml, in the
// current working directory. Returns nil (no error) if neither exists.
func LoadProject() (*Config, error) {
	cfg, err := loadFile(ProjectFile, false)
	if cfg != nil || err != nil {
		return cfg, err
	}
	return loadFile(ProjectYAMLFile, false)
}

// loadFile reads and parses a config file at path, as YAML for .yaml and
// .yml files and as JSON otherwise.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// YAML renders c in the project file's YAML form.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, layer := range []*Config{global, project} {
		if layer == nil {
			continue
		}
		if layer.InputDir != "" {
			result.InputDir = layer.InputDir
		}
		if layer.OutputDir != "" {
			result.OutputDir = layer.OutputDir
		}
		if layer.Recursive != nil {
			result.Recursive = boolPtr(*layer.Recursive)
		}
		if len(layer.Extensions) > 0 {
			result.Extensions = layer.Extensions
		}
		if layer.VisualDir != "" {
			result.VisualDir = layer.VisualDir
		}
		if layer.LineWidth > 0 {
			result.LineWidth = layer.LineWidth
		}
		if layer.BoxColor != "" {
			result.BoxColor = layer.BoxColor
		}
		if layer.WriteLabel != nil {
			result.WriteLabel = boolPtr(*layer.WriteLabel)
		}
	}
	return result
}

// Environment variables that override file settings.
const (
	EnvInputDir  = "ANNOTATE_INPUT_DIR"
	EnvOutputDir = "ANNOTATE_OUTPUT_DIR"
	EnvVisualDir = "ANNOTATE_VISUAL_DIR"
	EnvRecursive = "ANNOTATE_RECURSIVE"
)

// ApplyEnv overlays ANNOTATE_* settings on cfg. Values come from envFile
// (dotenv syntax, skipped when absent) with the process environment taking
// precedence over it.
func ApplyEnv(cfg *Config, envFile string) error {
	vars := map[string]string{}
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return &ParseError{Path: envFile, Err: err}
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for _, key := range []string{EnvInputDir, EnvOutputDir, EnvVisualDir, EnvRecursive} {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			vars[key] = v
		}
	}

	if v := vars[EnvInputDir]; v != "" {
		cfg.InputDir = v
	}
	if v := vars[EnvOutputDir]; v != "" {
		cfg.OutputDir = v
	}
	if v := vars[EnvVisualDir]; v != "" {
		cfg.VisualDir = v
	}
	if v := vars[EnvRecursive]; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvRecursive, v, err)
		}
		cfg.Recursive = boolPtr(b)
	}
	return nil
}

// Validate checks that the merged configuration is usable.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.InputDir) == "" {
		errs = append(errs, errors.New("input_dir must not be empty"))
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if len(c.Extensions) == 0 {
		errs = append(errs, errors.New("extensions must list at least one suffix"))
	}
	if c.LineWidth < 1 {
		errs = append(errs, fmt.Errorf("line_width must be at least 1, got %d", c.LineWidth))
	}
	if _, err := ParseColor(c.BoxColor); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseColor parses a "#rrggbb" color.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("box_color %q is not #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("box_color %q is not #rrggbb", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func boolPtr(b bool) *bool { return &b }
