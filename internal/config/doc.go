// Package config provides configuration management for album-dl.
//
// This package handles:
//   - Default configuration values
//   - Loading settings from a YAML file with environment overrides
//   - Saving settings back to YAML
//   - Conversion to download.Options for the download manager
//
// # Loading
//
// Settings are read through viper. Flags can be bound to the same instance
// before loading, so the precedence is flag, environment, file, default:
//
//	v := config.New()
//	v.BindPFlag("concurrency", cmd.Flags().Lookup("concurrency"))
//	settings, err := config.Load(v, "")
//
// Environment variables use the ALBUMDL_ prefix, e.g. ALBUMDL_OUTPUT_ROOT.
//
// # Saving Settings
//
//	settings.Extension = "mp3"
//	err := settings.Save(config.DefaultConfigPath())
package config
