// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	CompressionDeflate Compression = "deflate"
	CompressionStore   Compression = "store"

	ReportFormatJSON ReportFormat = "json"
	ReportFormatTOML ReportFormat = "toml"
	ReportFormatYAML ReportFormat = "yaml"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// ColorSchemeAuto detects the terminal background.
	ColorSchemeAuto  ColorScheme = "auto"
	ColorSchemeDark  ColorScheme = "dark"
	ColorSchemeLight ColorScheme = "light"
)

var (
	ErrInvalidCompression  = errors.New("invalid compression")
	ErrInvalidReportFormat = errors.New("invalid report format")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidColorScheme  = errors.New("invalid color scheme")
	ErrInvalidWatchConfig  = errors.New("invalid watch config")
	// ErrInvalidConfig is wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Compression is the ZIP method for file members.
	Compression string

	// ReportFormat is the serialization of a build report.
	ReportFormat string

	// LogLevel is the minimum level written to stderr.
	LogLevel string

	// ColorScheme selects the terminal palette for styled output.
	ColorScheme string

	// InvalidValueError reports a value outside an enumerated set. It wraps
	// the sentinel for its kind.
	InvalidValueError struct {
		Field    string
		Value    string
		Allowed  []string
		sentinel error
	}

	// InvalidWatchConfigError collects watch setting problems.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError collects every field error found by Config.Validate.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the effective apspack settings.
	Config struct {
		// OutputDir receives built packages; "" means the working directory.
		OutputDir   string       `json:"output_dir" mapstructure:"output_dir"`
		Compression Compression  `json:"compression" mapstructure:"compression"`
		Validate    bool         `json:"validate" mapstructure:"validate"`
		Report      ReportConfig `json:"report" mapstructure:"report"`
		Log         LogConfig    `json:"log" mapstructure:"log"`
		UI          UIConfig     `json:"ui" mapstructure:"ui"`
		Watch       WatchConfig  `json:"watch" mapstructure:"watch"`
	}

	ReportConfig struct {
		Format ReportFormat `json:"format" mapstructure:"format"`
	}

	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}

	UIConfig struct {
		// Verbose lowers the log level to debug and prints error chains.
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}

	WatchConfig struct {
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Ignore lists doublestar patterns relative to the source root.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}
)

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:   "",
		Compression: CompressionDeflate,
		Validate:    false,
		Report:      ReportConfig{Format: ReportFormatJSON},
		Log:         LogConfig{Level: LogLevelInfo},
		UI:          UIConfig{Verbose: false, ColorScheme: ColorSchemeAuto},
		Watch:       WatchConfig{Debounce: 500 * time.Millisecond, Ignore: []string{}},
	}
}

func (c Compression) Validate() error {
	return oneOf("compression", string(c), ErrInvalidCompression, CompressionDeflate, CompressionStore)
}

func (f ReportFormat) Validate() error {
	return oneOf("report.format", string(f), ErrInvalidReportFormat, ReportFormatJSON, ReportFormatTOML, ReportFormatYAML)
}

func (l LogLevel) Validate() error {
	return oneOf("log.level", string(l), ErrInvalidLogLevel, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)
}

func (s ColorScheme) Validate() error {
	return oneOf("ui.color_scheme", string(s), ErrInvalidColorScheme, ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight)
}

// Validate checks the debounce is positive and every ignore pattern parses.
func (w WatchConfig) Validate() error {
	var errs []error
	if w.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must be positive (got %s)", w.Debounce))
	}
	for i, p := range w.Ignore {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("watch.ignore[%d]: invalid pattern %q", i, p))
		}
	}
	if len(errs) > 0 {
		return &InvalidWatchConfigError{FieldErrors: errs}
	}
	return nil
}

// Validate returns an InvalidConfigError listing every invalid field.
func (c *Config) Validate() error {
	var errs []error
	for _, v := range []interface{ Validate() error }{
		c.Compression, c.Report.Format, c.Log.Level, c.UI.ColorScheme, c.Watch,
	} {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

func oneOf[T ~string](field, value string, sentinel error, allowed ...T) error {
	names := make([]string, len(allowed))
	for i, a := range allowed {
		if string(a) == value {
			return nil
		}
		names[i] = string(a)
	}
	return &InvalidValueError{Field: field, Value: value, Allowed: names, sentinel: sentinel}
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: invalid value %q (expected one of: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

func (e *InvalidValueError) Unwrap() error { return e.sentinel }

func (e *InvalidWatchConfigError) Error() string {
	return joinFieldErrors("invalid watch config", e.FieldErrors)
}

func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

func (e *InvalidConfigError) Error() string {
	return joinFieldErrors("invalid config", e.FieldErrors)
}

// Unwrap exposes ErrInvalidConfig and every field error to errors.Is.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

func joinFieldErrors(prefix string, errs []error) string {
	if len(errs) == 1 {
		return prefix + ": " + errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %d errors:\n  %s", prefix, len(errs), strings.Join(msgs, "\n  "))
}
