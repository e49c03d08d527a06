// Package config provides centralized configuration management.
// It loads configuration from multiple sources, validates it, and exposes
// a type-safe API for the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables use the CLINICORE_ prefix:
//
//	CLINICORE_SERVER_PORT=8080
//	CLINICORE_STORAGE_DATA_DIR=data
//	CLINICORE_REPORTS_WORKERS=4
//	CLINICORE_LOGGING_LEVEL=info
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
