// Package config loads service configuration from YAML files, .env files and
// environment variables.
//
// Files are looked up next to the service binary's source directory
// (./cmd/<service>/config.yml), then ./config/config.yml, then ./config.yml.
// Environment variables override file values; WHISPERJOB_ENGINE_LANGUAGE and
// ENGINE_LANGUAGE both reach the engine.language key.
//
//	var cfg Config
//	if err := config.LoadConfig("whisperjob", &cfg); err != nil { ... }
package config
