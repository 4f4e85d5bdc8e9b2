// SPDX-License-Identifier: MPL-2.0

// Package config loads apspack settings with Viper, using CUE as the file
// format.
//
// Values come from built-in defaults, then a config.cue file validated against
// the embedded #Config schema (config_schema.cue), then APSPACK_* environment
// variables. The file is looked up in the user config directory
// ($XDG_CONFIG_HOME/apspack on Linux, ~/Library/Application Support/apspack on
// macOS, %APPDATA%\apspack on Windows) and then in the working directory.
package config
