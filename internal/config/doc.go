// Package config provides centralized configuration management for the
// ShiftCast services. It handles loading configuration from multiple sources,
// validation, and a type-safe API for the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file (config.yaml or configs/config.yaml)
//	3. Built-in defaults (lowest priority)
//
// A .env file in the working directory is read before the environment layer
// so local overrides behave like exported variables.
//
// # Environment Variables
//
// All environment variables follow the pattern SHIFTCAST_* for namespacing:
//
//	SHIFTCAST_SERVER_PORT=8080
//	SHIFTCAST_DATABASE_DSN=postgres://...
//	SHIFTCAST_KAFKA_BROKERS=localhost:9092
//	SHIFTCAST_LOGGING_LEVEL=info
//	SHIFTCAST_CORRECTION_DECAY_RATE=0.15
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Validation
//
// All configuration is validated at load time: server timeouts and ports,
// the correction pipeline parameters, and the job runner sizing all have to
// be sane before any service starts.
package config
