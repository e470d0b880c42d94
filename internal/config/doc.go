// Package config provides centralized configuration management for datamod.
// It handles loading configuration from multiple sources, validation, and
// resolution of every file system path the application touches.
//
// # Configuration Sources
//
// Configuration is layered, later sources overriding earlier ones:
//
//	1. Built-in defaults (Default)
//	2. Configuration file (datamod.yaml or configs/datamod.json)
//	3. The defaults document (configs/defaults.json) for the Defaults section
//	4. Environment variables (DATAMOD_*)
//
// # Environment Variables
//
// All environment variables follow the pattern DATAMOD_<SECTION>_<FIELD>:
//
//	DATAMOD_SERVER_PORT=8080
//	DATAMOD_LOGGING_LEVEL=debug
//	DATAMOD_DEFAULTS_CHART_DPI=150
//	DATAMOD_DEFAULTS_HISTORY_DEPTH=20
//
// # Static Documents
//
// Two JSON documents live in the config directory:
//
//	defaults.json  application defaults (limits, chart DPI, save format)
//	units.json     time unit conversion factors
//
// Both are optional. Missing documents fall back to the built-in values.
//
// # Path Management
//
// Paths resolves the configured directories against the executable location:
//
//	paths, err := config.ResolvePaths(cfg.Paths)
//	out := paths.GetExportPath("result.xlsx")
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
